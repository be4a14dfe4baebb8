package handlers

import (
	"context"

	loggingpkg "github.com/drblury/matchwire/internal/runtime/logging"
	messagespkg "github.com/drblury/matchwire/internal/runtime/messages"
	metadatapkg "github.com/drblury/matchwire/internal/runtime/metadata"
)

// MessageContext describes the envelope a typed handler is processing.
type MessageContext struct {
	UUID     string
	Tag      messagespkg.Tag
	Name     string
	Metadata metadatapkg.Metadata
	Logger   loggingpkg.ServiceLogger
}

// CloneMetadata returns a copy of the current metadata map so handlers can
// mutate headers without touching the original.
func (c MessageContext) CloneMetadata() metadatapkg.Metadata {
	return c.Metadata.Clone()
}

// Get retrieves a metadata value by key.
func (c MessageContext) Get(key string) string {
	return c.Metadata[key]
}

// CorrelationID returns the correlation ID from metadata, if present.
func (c MessageContext) CorrelationID() string {
	return c.Metadata.CorrelationID()
}

type decodedKey struct{}

// WithDecoded stores an already decoded message on ctx so the dispatch
// handler does not decode the payload a second time.
func WithDecoded(ctx context.Context, msg messagespkg.Message) context.Context {
	return context.WithValue(ctx, decodedKey{}, msg)
}

// DecodedFromContext returns the message stored by WithDecoded.
func DecodedFromContext(ctx context.Context) (messagespkg.Message, bool) {
	if ctx == nil {
		return nil, false
	}
	msg, ok := ctx.Value(decodedKey{}).(messagespkg.Message)
	return msg, ok && msg != nil
}
