package transport

// Capabilities describes what a backend guarantees for the envelopes it carries.
type Capabilities struct {
	Name string

	// SupportsOrdering: envelopes on one topic arrive in publish order.
	SupportsOrdering bool
	SupportsAck      bool
	SupportsNack     bool
	// SupportsNativeDLQ: the broker dead-letters on its own. When false the
	// relay's poison queue middleware does it.
	SupportsNativeDLQ bool
	// CarriesMetadata is false for backends that move bare envelopes, where
	// correlation ids and the tag/message headers are lost in transit.
	CarriesMetadata bool
	// Persistent backends keep envelopes across relay restarts.
	Persistent bool

	// MaxMessageSize is the largest envelope in bytes (0 = unlimited/unknown).
	MaxMessageSize int64
}

// SupportsReliableDelivery returns true if the transport supports at-least-once
// delivery semantics (ack + nack).
func (c Capabilities) SupportsReliableDelivery() bool {
	return c.SupportsAck && c.SupportsNack
}

// RequiresDLQEmulation returns true if poison envelopes must be routed by the relay.
func (c Capabilities) RequiresDLQEmulation() bool {
	return !c.SupportsNativeDLQ
}

// Fits reports whether an envelope of size bytes can be carried.
func (c Capabilities) Fits(size int) bool {
	return c.MaxMessageSize <= 0 || int64(size) <= c.MaxMessageSize
}

// Predefined capability sets for the built-in backends.
var (
	ChannelCapabilities = Capabilities{
		Name:             "channel",
		SupportsOrdering: true,
		SupportsAck:      true,
		SupportsNack:     true,
		CarriesMetadata:  true,
	}

	// StreamCapabilities describes the length-prefixed byte stream spoken by
	// the game controller and the launcher.
	StreamCapabilities = Capabilities{
		Name:             "stream",
		SupportsOrdering: true,
		MaxMessageSize:   1 << 20,
	}

	IOCapabilities = Capabilities{
		Name:             "io",
		SupportsOrdering: true,
		CarriesMetadata:  true,
		Persistent:       true,
	}

	NATSCapabilities = Capabilities{
		Name:            "nats",
		CarriesMetadata: true,
		MaxMessageSize:  1 << 20,
	}

	KafkaCapabilities = Capabilities{
		Name:             "kafka",
		SupportsOrdering: true,
		SupportsAck:      true,
		CarriesMetadata:  true,
		Persistent:       true,
		MaxMessageSize:   1 << 20,
	}

	RabbitMQCapabilities = Capabilities{
		Name:              "rabbitmq",
		SupportsOrdering:  true,
		SupportsAck:       true,
		SupportsNack:      true,
		SupportsNativeDLQ: true,
		CarriesMetadata:   true,
		Persistent:        true,
	}

	HTTPCapabilities = Capabilities{
		Name:            "http",
		CarriesMetadata: true,
	}

	AWSCapabilities = Capabilities{
		Name:              "aws",
		SupportsAck:       true,
		SupportsNack:      true,
		SupportsNativeDLQ: true,
		CarriesMetadata:   true,
		Persistent:        true,
		MaxMessageSize:    256 << 10,
	}
)

// GetCapabilities returns the capabilities registered for a transport name.
func GetCapabilities(transportName string) Capabilities {
	return DefaultRegistry.GetCapabilities(transportName)
}
