/*
Package runtime hosts the relay service that moves matchwire envelopes between
the login server, the launcher and the game server.

# Service

Service wraps a Watermill router together with the publisher and subscriber
built by the configured transport. Every envelope that enters a handler first
passes the middleware chain:

  - correlation_id: stamps a ULID when the sender did not set one
  - log_messages: debug logging of the tag and payload size
  - envelope_validate: decodes the envelope once and stores the message on the context
  - tracer: OpenTelemetry span per handler invocation
  - metrics: Prometheus router metrics plus the protocol counters
  - poison_queue: forwards protocol errors to <prefix>.poison
  - retry: exponential backoff for downstream failures
  - recoverer: turns panics into handler errors

Protocol errors (unknown tag, malformed payload, tag mismatch) are never
retried. With Config.UnknownTagPolicy set to "skip", envelopes carrying a tag
outside the catalog are acked and logged instead of poisoned.

# Topics

Each tag maps to one topic, <prefix>.<sender>.<receiver>, derived from the
tag's direction. Service.Publish picks the topic from the message, and a
Dispatcher registered without a PublishTopic routes each reply the same way.

# Status

When StatusEnabled is set, /api/handlers, /api/catalog and /api/protocol are
served on StatusPort next to /metrics.

# Sub-packages

  - config/: service configuration and validation
  - errors/: sentinel errors
  - handlers/: Dispatcher, typed handlers and message context
  - ids/: ULID generation
  - jsoncodec/: JSON encoding used by the codec and the status API
  - logging/: logger interface and adapters
  - messages/: tags, the catalog of variants and the envelope codec
  - metadata/: envelope metadata keys
  - transport/: transport factory
*/
package runtime
