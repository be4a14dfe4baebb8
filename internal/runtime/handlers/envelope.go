package handlers

import (
	"maps"

	"github.com/ThreeDotsLabs/watermill/message"

	idspkg "github.com/drblury/matchwire/internal/runtime/ids"
	messagespkg "github.com/drblury/matchwire/internal/runtime/messages"
	metadatapkg "github.com/drblury/matchwire/internal/runtime/metadata"
)

// NewEnvelopeMessage encodes msg and wraps the envelope in a Watermill
// message with a fresh ULID. The reserved tag and message keys are always
// overwritten; a correlation id is added when md carries none.
func NewEnvelopeMessage(codec *messagespkg.Codec, msg messagespkg.Message, md metadatapkg.Metadata) (*message.Message, error) {
	if codec == nil {
		codec = messagespkg.DefaultCodec()
	}
	payload, err := codec.Encode(msg)
	if err != nil {
		return nil, err
	}

	tag := msg.Tag()
	out := message.NewMessage(idspkg.CreateULID(), payload)
	out.Metadata = metadatapkg.ToWatermill(md)
	out.Metadata.Set(metadatapkg.KeyTag, tag.String())
	out.Metadata.Set(metadatapkg.KeyMessage, codec.Registry().Name(tag))
	if out.Metadata.Get(metadatapkg.KeyCorrelationID) == "" {
		out.Metadata.Set(metadatapkg.KeyCorrelationID, idspkg.CreateULID())
	}
	return out, nil
}

// replyMetadata carries the incoming headers over to a reply, minus the keys
// describing the incoming envelope itself.
func replyMetadata(in message.Metadata) metadatapkg.Metadata {
	md := make(metadatapkg.Metadata, len(in))
	maps.Copy(md, in)
	for key := range md {
		if metadatapkg.Reserved(key) {
			delete(md, key)
		}
	}
	return md
}
