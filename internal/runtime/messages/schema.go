package messages

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	jsoncodec "github.com/drblury/matchwire/internal/runtime/jsoncodec"
)

var errPayloadNotObject = errors.New("payload is not a JSON object")

// fieldNames lists the payload keys of a variant struct in declaration order.
func fieldNames(t reflect.Type) []string {
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}
		names = append(names, name)
	}
	return names
}

// decodeFields checks the key set of payload against fields before decoding
// it into dst: every field must be present and non-null, and no other key
// may appear.
func decodeFields(payload []byte, fields []string, dst any) error {
	var raw map[string]any
	if err := jsoncodec.Unmarshal(payload, &raw); err != nil {
		return err
	}
	if raw == nil {
		return errPayloadNotObject
	}

	for _, name := range fields {
		value, ok := raw[name]
		if !ok {
			return &FieldError{Field: name, Problem: "is missing"}
		}
		if value == nil {
			return &FieldError{Field: name, Problem: "is null"}
		}
	}
	if len(raw) > len(fields) {
		return &FieldError{Field: unknownKeys(raw, fields)[0], Problem: "is not a known field"}
	}

	return jsoncodec.UnmarshalStrict(payload, dst)
}

func unknownKeys(raw map[string]any, fields []string) []string {
	known := make(map[string]struct{}, len(fields))
	for _, name := range fields {
		known[name] = struct{}{}
	}
	var extra []string
	for key := range raw {
		if _, ok := known[key]; !ok {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	return extra
}
