// Package io records envelopes to an append-only JSON-lines file and replays
// them to subscribers. It is meant for capturing a match's traffic and
// feeding it back through the relay when debugging.
package io

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	jsoncodec "github.com/drblury/matchwire/internal/runtime/jsoncodec"
	messagespkg "github.com/drblury/matchwire/internal/runtime/messages"
	"github.com/drblury/matchwire/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "io"

// DefaultFilePath is used when no file is configured.
const DefaultFilePath = "envelopes.jsonl"

// pollInterval is how often a subscriber at the end of the file looks for new lines.
const pollInterval = 50 * time.Millisecond

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(filePath string, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return &Publisher{filePath: filePath, logger: logger}, nil
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(filePath string, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return &Subscriber{filePath: filePath, logger: logger}, nil
}

func init() {
	Register()
}

// Register registers the I/O transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.IOCapabilities)
}

// Build creates a new I/O transport.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	filePath := cfg.GetIOFile()
	if filePath == "" {
		filePath = DefaultFilePath
	}

	pub, err := PublisherFactory(filePath, logger)
	if err != nil {
		return transport.Transport{}, err
	}

	sub, err := SubscriberFactory(filePath, logger)
	if err != nil {
		return transport.Transport{}, err
	}

	return transport.Transport{
		Publisher:  pub,
		Subscriber: sub,
	}, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.IOCapabilities
}

// Record is one line of the envelope log. Tag and Message are derived from
// the envelope for readability; Envelope holds the exact bytes.
type Record struct {
	UUID       string            `json:"uuid"`
	Topic      string            `json:"topic"`
	Tag        string            `json:"tag,omitempty"`
	Message    string            `json:"message,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Envelope   []byte            `json:"envelope"`
	RecordedAt time.Time         `json:"recorded_at"`
}

func newRecord(topic string, msg *message.Message) Record {
	rec := Record{
		UUID:       msg.UUID,
		Topic:      topic,
		Metadata:   msg.Metadata,
		Envelope:   msg.Payload,
		RecordedAt: time.Now().UTC(),
	}
	if tag, err := messagespkg.PeekTag(msg.Payload); err == nil {
		rec.Tag = tag.String()
		rec.Message = tag.Name()
	}
	return rec
}

// Publisher appends records to the file.
type Publisher struct {
	filePath string
	logger   watermill.LoggerAdapter
	mu       sync.Mutex
}

func (p *Publisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, err := os.OpenFile(p.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, msg := range messages {
		line, err := jsoncodec.Marshal(newRecord(topic, msg))
		if err != nil {
			return err
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return err
		}
	}
	return w.Flush()
}

func (p *Publisher) Close() error {
	return nil
}

// Subscriber replays the file from the start and then follows it, delivering
// the records of one topic in file order.
type Subscriber struct {
	filePath string
	logger   watermill.LoggerAdapter
}

func (s *Subscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	f, err := os.OpenFile(s.filePath, os.O_RDONLY|os.O_CREATE, 0600)
	if err != nil {
		return nil, err
	}

	out := make(chan *message.Message)
	go func() {
		defer close(out)
		defer f.Close()
		s.follow(ctx, f, topic, out)
	}()
	return out, nil
}

func (s *Subscriber) Close() error {
	return nil
}

func (s *Subscriber) follow(ctx context.Context, f *os.File, topic string, out chan<- *message.Message) {
	reader := bufio.NewReader(f)
	var partial []byte

	for {
		chunk, err := reader.ReadBytes('\n')
		partial = append(partial, chunk...)

		switch {
		case err == nil:
			line := partial
			partial = nil
			if !s.deliver(ctx, out, line, topic) {
				return
			}
		case errors.Is(err, io.EOF):
			// A writer may be mid-line; keep what was read and wait for the rest.
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollInterval):
			}
		default:
			s.logger.Error("Failed to read envelope log", err, watermill.LogFields{"file": s.filePath})
			return
		}
	}
}

func (s *Subscriber) deliver(ctx context.Context, out chan<- *message.Message, line []byte, topic string) bool {
	var rec Record
	if err := jsoncodec.Unmarshal(line, &rec); err != nil {
		s.logger.Error("Skipping unreadable envelope record", err, watermill.LogFields{"file": s.filePath})
		return true
	}
	if rec.Topic != topic {
		return true
	}

	msg := message.NewMessage(rec.UUID, rec.Envelope)
	if rec.Metadata != nil {
		msg.Metadata = rec.Metadata
	}

	select {
	case out <- msg:
	case <-ctx.Done():
		return false
	}

	select {
	case <-msg.Acked():
	case <-msg.Nacked():
		s.logger.Debug("Envelope nacked", watermill.LogFields{"uuid": msg.UUID, "tag": rec.Tag})
	case <-ctx.Done():
		return false
	}
	return true
}
