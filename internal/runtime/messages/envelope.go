package messages

import (
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"

	errspkg "github.com/drblury/matchwire/internal/runtime/errors"
	jsoncodec "github.com/drblury/matchwire/internal/runtime/jsoncodec"
)

// TagSize is the width of the little-endian tag that starts every envelope.
const TagSize = 2

var errShortEnvelope = errors.New("envelope shorter than the 2-byte tag")

// Codec turns messages into envelopes (tag + JSON payload) and back. The
// envelope is not length-prefixed; callers rely on the transport to preserve
// message boundaries. A Codec holds no mutable state.
type Codec struct {
	registry *Registry
}

var defaultCodec = &Codec{registry: defaultRegistry}

// NewCodec returns a codec resolving tags through registry. A nil registry
// selects the default catalog.
func NewCodec(registry *Registry) *Codec {
	if registry == nil {
		registry = defaultRegistry
	}
	return &Codec{registry: registry}
}

// DefaultCodec returns the codec for the complete catalog.
func DefaultCodec() *Codec {
	return defaultCodec
}

func (c *Codec) Registry() *Registry {
	return c.registry
}

// Encode writes msg's tag followed by its JSON payload.
func (c *Codec) Encode(msg Message) ([]byte, error) {
	if isNilMessage(msg) {
		return nil, errspkg.ErrMessageRequired
	}

	tag := msg.Tag()
	if _, ok := c.registry.Lookup(tag); !ok {
		return nil, &UnknownTagError{Tag: tag}
	}
	if v, ok := msg.(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, &MalformedPayloadError{Tag: tag, Err: err}
		}
	}

	payload, err := jsoncodec.Marshal(msg)
	if err != nil {
		return nil, &MalformedPayloadError{Tag: tag, Err: err}
	}

	buf := make([]byte, TagSize, TagSize+len(payload))
	binary.LittleEndian.PutUint16(buf, uint16(tag))
	return append(buf, payload...), nil
}

// Decode resolves the envelope's tag in the registry and decodes the payload
// into the registered variant. It never returns a message alongside an error.
func (c *Codec) Decode(data []byte) (Message, error) {
	tag, err := PeekTag(data)
	if err != nil {
		return nil, err
	}

	entry, ok := c.registry.Lookup(tag)
	if !ok {
		return nil, &UnknownTagError{Tag: tag}
	}

	msg, err := entry.Decode(data[TagSize:])
	if err != nil {
		return nil, &MalformedPayloadError{Tag: tag, Err: err}
	}
	if isNilMessage(msg) {
		return nil, &MalformedPayloadError{Tag: tag, Err: fmt.Errorf("decoder for %s returned no message", entry.Name)}
	}
	if got := msg.Tag(); got != tag {
		return nil, &TagMismatchError{Envelope: tag, Decoded: got, Type: fmt.Sprintf("%T", msg)}
	}
	return msg, nil
}

// PeekTag reads the tag without touching the payload.
func PeekTag(data []byte) (Tag, error) {
	if len(data) < TagSize {
		return 0, &MalformedPayloadError{Untagged: true, Err: errShortEnvelope}
	}
	return Tag(binary.LittleEndian.Uint16(data)), nil
}

// Encode encodes msg with the default codec.
func Encode(msg Message) ([]byte, error) {
	return defaultCodec.Encode(msg)
}

// Decode decodes data with the default codec.
func Decode(data []byte) (Message, error) {
	return defaultCodec.Decode(data)
}

func isNilMessage(msg Message) bool {
	if msg == nil {
		return true
	}
	v := reflect.ValueOf(msg)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
