package io

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jsoncodec "github.com/drblury/matchwire/internal/runtime/jsoncodec"
	"github.com/drblury/matchwire/transport"
	"github.com/drblury/matchwire/transport/transporttest"
)

var matchTime = []byte("\x03\x30{\"seconds_remaining\":60,\"counting\":true}")

func TestRegister(t *testing.T) {
	Register()

	caps := transport.GetCapabilities(TransportName)
	assert.Equal(t, "io", caps.Name)
	assert.True(t, caps.Persistent)
	assert.False(t, caps.SupportsAck)
	assert.Equal(t, transport.IOCapabilities, Capabilities())
}

func TestBuildUsesDefaultFile(t *testing.T) {
	original := PublisherFactory
	t.Cleanup(func() { PublisherFactory = original })

	var gotPath string
	PublisherFactory = func(filePath string, logger watermill.LoggerAdapter) (message.Publisher, error) {
		gotPath = filePath
		return &transporttest.Publisher{}, nil
	}

	_, err := Build(context.Background(), &transporttest.Config{}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, DefaultFilePath, gotPath)
}

func TestPublishWritesRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "match.jsonl")
	tr, err := Build(context.Background(), &transporttest.Config{IOFile: path}, watermill.NopLogger{})
	require.NoError(t, err)

	msg := message.NewMessage("uuid-1", matchTime)
	msg.Metadata.Set("correlation_id", "match-7")
	require.NoError(t, tr.Publisher.Publish("matchwire.game.launcher", msg))
	require.NoError(t, tr.Publisher.Publish("matchwire.game.launcher", message.NewMessage("uuid-2", []byte{0xFF, 0xFF, '{', '}'})))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec Record
		require.NoError(t, jsoncodec.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	require.Len(t, records, 2)

	assert.Equal(t, "uuid-1", records[0].UUID)
	assert.Equal(t, "matchwire.game.launcher", records[0].Topic)
	assert.Equal(t, "0x3003", records[0].Tag)
	assert.Equal(t, "Game2LauncherMatchTime", records[0].Message)
	assert.Equal(t, "match-7", records[0].Metadata["correlation_id"])
	assert.Equal(t, matchTime, records[0].Envelope)
	assert.False(t, records[0].RecordedAt.IsZero())

	assert.Equal(t, "0xFFFF", records[1].Tag)
	assert.Empty(t, records[1].Message)
}

func TestSubscribeReplaysAndFollows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "match.jsonl")
	tr, err := Build(context.Background(), &transporttest.Config{IOFile: path}, watermill.NopLogger{})
	require.NoError(t, err)

	require.NoError(t, tr.Publisher.Publish("matchwire.game.launcher", message.NewMessage("recorded", matchTime)))
	require.NoError(t, tr.Publisher.Publish("matchwire.login.launcher", message.NewMessage("other-topic", []byte("\x00\x10{}"))))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msgs, err := tr.Subscriber.Subscribe(ctx, "matchwire.game.launcher")
	require.NoError(t, err)

	first := <-msgs
	require.NotNil(t, first)
	assert.Equal(t, "recorded", first.UUID)
	assert.Equal(t, matchTime, []byte(first.Payload))
	first.Ack()

	require.NoError(t, tr.Publisher.Publish("matchwire.game.launcher", message.NewMessage("live", []byte("\x04\x30{}"))))

	select {
	case live := <-msgs:
		require.NotNil(t, live)
		assert.Equal(t, "live", live.UUID)
		live.Ack()
	case <-ctx.Done():
		t.Fatal("appended envelope not delivered")
	}

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-msgs
		return !open
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSubscribeSkipsUnreadableLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "match.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("not json\n"), 0600))

	tr, err := Build(context.Background(), &transporttest.Config{IOFile: path}, watermill.NopLogger{})
	require.NoError(t, err)
	require.NoError(t, tr.Publisher.Publish("t", message.NewMessage("after-garbage", matchTime)))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msgs, err := tr.Subscriber.Subscribe(ctx, "t")
	require.NoError(t, err)

	got := <-msgs
	require.NotNil(t, got)
	assert.Equal(t, "after-garbage", got.UUID)
	got.Ack()
}
