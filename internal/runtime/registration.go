package runtime

import (
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/drblury/matchwire/internal/runtime/errors"
	handlerpkg "github.com/drblury/matchwire/internal/runtime/handlers"
	messagespkg "github.com/drblury/matchwire/internal/runtime/messages"
)

type handlerRegistration struct {
	Name         string
	ConsumeTopic string
	Subscriber   message.Subscriber
	PublishTopic string
	Publisher    message.Publisher
	Handler      message.HandlerFunc
	// routeByTag publishes returned envelopes to the topic derived from their
	// tag instead of a fixed PublishTopic.
	routeByTag bool
}

// MessageHandlerRegistration wires a raw Watermill handler without the codec.
type MessageHandlerRegistration struct {
	Name         string
	ConsumeTopic string
	PublishTopic string
	Handler      message.HandlerFunc
	Subscriber   message.Subscriber
	Publisher    message.Publisher
}

// DispatcherRegistration wires a Dispatcher to a topic. Replies are published
// to PublishTopic, or to the topic of each reply's tag when PublishTopic is empty.
type DispatcherRegistration struct {
	Name         string
	ConsumeTopic string
	PublishTopic string
	Dispatcher   *handlerpkg.Dispatcher
	Subscriber   message.Subscriber
	Publisher    message.Publisher
}

// RegisterMessageHandler attaches the provided handler to the service router.
func RegisterMessageHandler(svc *Service, cfg MessageHandlerRegistration) error {
	if svc == nil {
		return errspkg.ErrServiceRequired
	}

	return svc.registerHandler(handlerRegistration{
		Name:         cfg.Name,
		ConsumeTopic: cfg.ConsumeTopic,
		PublishTopic: cfg.PublishTopic,
		Subscriber:   cfg.Subscriber,
		Publisher:    cfg.Publisher,
		Handler:      cfg.Handler,
	})
}

// RegisterDispatcher decodes every envelope on ConsumeTopic with the service
// codec and hands it to the dispatcher's typed handler for its tag.
func RegisterDispatcher(svc *Service, cfg DispatcherRegistration) error {
	if svc == nil {
		return errspkg.ErrServiceRequired
	}
	if cfg.Dispatcher == nil {
		return errspkg.ErrDispatcherRequired
	}
	if cfg.Dispatcher.Codec() != svc.codec {
		return errors.New("matchwire: dispatcher codec differs from the service codec")
	}

	handler, err := handlerpkg.BuildHandler(cfg.Dispatcher, handlerpkg.Options{
		Logger:          svc.Logger,
		SkipUnknownTags: svc.Conf.SkipUnknownTags(),
		Observer:        svc.metrics,
	})
	if err != nil {
		return err
	}

	name := cfg.Name
	if name == "" && cfg.ConsumeTopic != "" {
		name = "dispatch:" + cfg.ConsumeTopic
	}

	return svc.registerHandler(handlerRegistration{
		Name:         name,
		ConsumeTopic: cfg.ConsumeTopic,
		PublishTopic: cfg.PublishTopic,
		Subscriber:   cfg.Subscriber,
		Publisher:    cfg.Publisher,
		Handler:      handler,
		routeByTag:   cfg.PublishTopic == "",
	})
}

func (s *Service) registerHandler(cfg handlerRegistration) error {
	if cfg.Handler == nil {
		return errspkg.ErrHandlerRequired
	}
	if cfg.ConsumeTopic == "" {
		return errspkg.ErrConsumeTopicRequired
	}
	if cfg.Name == "" {
		return errspkg.ErrHandlerNameRequired
	}
	if cfg.Subscriber == nil {
		cfg.Subscriber = s.subscriber
	}
	if cfg.Publisher == nil {
		cfg.Publisher = s.publisher
	}
	if (cfg.routeByTag || cfg.PublishTopic != "") && cfg.Publisher == nil {
		return errspkg.ErrPublisherRequired
	}

	s.handlersMu.Lock()
	for _, existing := range s.handlers {
		if existing.Name == cfg.Name {
			s.handlersMu.Unlock()
			return fmt.Errorf("matchwire: handler %q already registered", cfg.Name)
		}
	}
	stats := newHandlerStats()
	s.handlers = append(s.handlers, &HandlerInfo{
		Name:         cfg.Name,
		ConsumeTopic: cfg.ConsumeTopic,
		PublishTopic: cfg.PublishTopic,
		Stats:        stats,
	})
	s.handlersMu.Unlock()

	handler := wrapHandlerWithStats(cfg.Handler, stats, s.getErrorClassifier())

	switch {
	case cfg.PublishTopic != "":
		s.router.AddHandler(cfg.Name, cfg.ConsumeTopic, cfg.Subscriber, cfg.PublishTopic, cfg.Publisher, handler)
	case cfg.routeByTag:
		s.router.AddNoPublisherHandler(cfg.Name, cfg.ConsumeTopic, cfg.Subscriber, s.publishByTag(handler, cfg.Publisher))
	default:
		s.router.AddNoPublisherHandler(cfg.Name, cfg.ConsumeTopic, cfg.Subscriber, func(msg *message.Message) error {
			_, err := handler(msg)
			return err
		})
	}

	return nil
}

// publishByTag sends every produced envelope to the topic its tag belongs to.
// Replies sharing a topic go out in one Publish call, in the order the handler
// returned them. A failed batch fails the message, so batches published before
// it are delivered again when the message is retried.
func (s *Service) publishByTag(handler message.HandlerFunc, publisher message.Publisher) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		produced, err := handler(msg)
		if err != nil {
			return err
		}

		var topics []string
		batches := make(map[string][]*message.Message)
		for _, out := range produced {
			tag, err := messagespkg.PeekTag(out.Payload)
			if err != nil {
				return err
			}
			topic := s.TopicFor(tag)
			if _, ok := batches[topic]; !ok {
				topics = append(topics, topic)
			}
			batches[topic] = append(batches[topic], out)
		}

		for _, topic := range topics {
			if err := publisher.Publish(topic, batches[topic]...); err != nil {
				return fmt.Errorf("publish replies to %s: %w", topic, err)
			}
		}
		return nil
	}
}

// Handlers returns the registered handlers in registration order.
func (s *Service) Handlers() []*HandlerInfo {
	s.handlersMu.RLock()
	defer s.handlersMu.RUnlock()
	return append([]*HandlerInfo(nil), s.handlers...)
}

func wrapHandlerWithStats(handler message.HandlerFunc, stats *HandlerStats, classifier ErrorClassifier) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		stats.onMessageStart()
		start := time.Now()
		msgs, err := handler(msg)
		stats.onMessageFinish(time.Since(start), err, classifier)
		return msgs, err
	}
}
