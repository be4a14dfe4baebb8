package jsoncodec

import (
	"bytes"
	"strings"
	"testing"
)

type testPayload struct {
	Port int    `json:"port"`
	Motd string `json:"motd"`
}

func TestMarshalAndUnmarshal(t *testing.T) {
	in := testPayload{Port: 7777, Motd: "welcome"}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var out testPayload
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if out != in {
		t.Fatalf("expected round trip to match, got %#v", out)
	}

	indented, err := MarshalIndent(in, "", "  ")
	if err != nil {
		t.Fatalf("marshal indent failed: %v", err)
	}
	if !strings.Contains(string(indented), "\n  \"port\"") {
		t.Fatalf("expected indented output, got %s", string(indented))
	}
}

func TestMarshalSortsMapKeys(t *testing.T) {
	data, err := Marshal(map[uint32]uint8{321: 255, 123: 0, 234: 1})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"123":0,"234":1,"321":255}` {
		t.Fatalf("unexpected map encoding %s", string(data))
	}
}

func TestUnmarshalStrictRejectsUnknownKeys(t *testing.T) {
	var out testPayload
	if err := Unmarshal([]byte(`{"port":1,"motd":"x","extra":true}`), &out); err != nil {
		t.Fatalf("lenient unmarshal failed: %v", err)
	}
	if err := UnmarshalStrict([]byte(`{"port":1,"motd":"x","extra":true}`), &out); err == nil {
		t.Fatal("expected strict unmarshal to reject unknown key")
	}
	if err := UnmarshalStrict([]byte(`{"port":1,"motd":"x"}`), &out); err != nil {
		t.Fatalf("strict unmarshal failed on known keys: %v", err)
	}
}

func TestValid(t *testing.T) {
	if !Valid([]byte(`{}`)) {
		t.Fatal("expected empty object to be valid")
	}
	if Valid([]byte(`{"port":`)) {
		t.Fatal("expected truncated object to be invalid")
	}
}

func TestEncodeAndDecode(t *testing.T) {
	buf := &bytes.Buffer{}
	payload := testPayload{Port: 7778, Motd: "stream"}

	if err := Encode(buf, payload); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	var decoded testPayload
	if err := Decode(buf, &decoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded != payload {
		t.Fatalf("expected decoded payload to match, got %#v", decoded)
	}
}
