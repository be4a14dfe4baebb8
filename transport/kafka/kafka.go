// Package kafka relays envelopes through Kafka. Envelopes of one match share a
// partition key so they stay in order.
package kafka

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/matchwire/internal/runtime/metadata"
	"github.com/drblury/matchwire/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "kafka"

const (
	// DefaultClientID is used when the config leaves KafkaClientID empty.
	DefaultClientID = "matchwire"
	// DefaultConsumerGroup is used when the config leaves KafkaConsumerGroup empty.
	DefaultConsumerGroup = "matchwire-relay"
)

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return kafka.NewPublisher(cfg, logger)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg kafka.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return kafka.NewSubscriber(cfg, logger)
}

func init() {
	Register()
}

// Register registers the Kafka transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.KafkaCapabilities)
}

// PartitionKey keys an envelope by its correlation id, falling back to the
// message UUID when none is set.
func PartitionKey(_ string, msg *message.Message) (string, error) {
	if id := msg.Metadata.Get(metadata.KeyCorrelationID); id != "" {
		return id, nil
	}
	return msg.UUID, nil
}

// Build creates a new Kafka transport.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	brokers := cfg.GetKafkaBrokers()
	clientID := cfg.GetKafkaClientID()
	if clientID == "" {
		clientID = DefaultClientID
	}
	consumerGroup := cfg.GetKafkaConsumerGroup()
	if consumerGroup == "" {
		consumerGroup = DefaultConsumerGroup
	}

	marshaler := kafka.NewWithPartitioningMarshaler(PartitionKey)

	saramaPub := kafka.DefaultSaramaSyncPublisherConfig()
	saramaPub.ClientID = clientID

	publisher, err := PublisherFactory(
		kafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             marshaler,
			OverwriteSaramaConfig: saramaPub,
			Tracer:                kafka.NewOTELSaramaTracer(),
		},
		logger,
	)
	if err != nil {
		return transport.Transport{}, err
	}

	saramaSub := kafka.DefaultSaramaSubscriberConfig()
	saramaSub.ClientID = clientID

	subscriber, err := SubscriberFactory(
		kafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           marshaler,
			ConsumerGroup:         consumerGroup,
			OverwriteSaramaConfig: saramaSub,
			Tracer:                kafka.NewOTELSaramaTracer(),
		},
		logger,
	)
	if err != nil {
		return transport.Transport{}, err
	}

	return transport.Transport{
		Publisher:  publisher,
		Subscriber: subscriber,
	}, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.KafkaCapabilities
}
