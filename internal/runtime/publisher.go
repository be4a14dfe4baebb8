package runtime

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/drblury/matchwire/internal/runtime/errors"
	handlerpkg "github.com/drblury/matchwire/internal/runtime/handlers"
	messagespkg "github.com/drblury/matchwire/internal/runtime/messages"
	metadatapkg "github.com/drblury/matchwire/internal/runtime/metadata"
)

// Producer emits catalog messages onto the configured transport.
type Producer interface {
	Publish(ctx context.Context, msg messagespkg.Message, md metadatapkg.Metadata) error
	PublishTo(ctx context.Context, topic string, msg messagespkg.Message, md metadatapkg.Metadata) error
}

var _ Producer = (*Service)(nil)

// Publish encodes msg with codec and publishes the envelope to topic. A nil
// codec uses the built-in catalog.
func Publish(ctx context.Context, publisher message.Publisher, codec *messagespkg.Codec, topic string, msg messagespkg.Message, md metadatapkg.Metadata) error {
	if publisher == nil {
		return errspkg.ErrPublisherRequired
	}
	if topic == "" {
		return errspkg.ErrTopicRequired
	}

	wm, err := handlerpkg.NewEnvelopeMessage(codec, msg, md)
	if err != nil {
		return err
	}
	if ctx != nil {
		wm.SetContext(ctx)
	}
	return publisher.Publish(topic, wm)
}

// Publish sends msg to the topic derived from its tag direction.
func (s *Service) Publish(ctx context.Context, msg messagespkg.Message, md metadatapkg.Metadata) error {
	return s.publish(ctx, "", msg, md)
}

// PublishTo sends msg to an explicit topic.
func (s *Service) PublishTo(ctx context.Context, topic string, msg messagespkg.Message, md metadatapkg.Metadata) error {
	if topic == "" {
		return errspkg.ErrTopicRequired
	}
	return s.publish(ctx, topic, msg, md)
}

func (s *Service) publish(ctx context.Context, topic string, msg messagespkg.Message, md metadatapkg.Metadata) error {
	if s == nil {
		return errspkg.ErrServiceRequired
	}
	if s.publisher == nil {
		return errspkg.ErrPublisherRequired
	}

	wm, err := handlerpkg.NewEnvelopeMessage(s.codec, msg, md)
	if err != nil {
		s.metrics.EnvelopeFailed(messagespkg.ErrorKind(err))
		return err
	}
	if topic == "" {
		topic = s.TopicFor(msg.Tag())
	}
	if ctx != nil {
		wm.SetContext(ctx)
	}
	if err := s.publisher.Publish(topic, wm); err != nil {
		return err
	}
	s.metrics.EnvelopeEncoded(wm.Metadata.Get(metadatapkg.KeyMessage))
	return nil
}
