package runtime

import (
	"errors"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	errspkg "github.com/drblury/matchwire/internal/runtime/errors"
	handlerpkg "github.com/drblury/matchwire/internal/runtime/handlers"
	idspkg "github.com/drblury/matchwire/internal/runtime/ids"
	loggingpkg "github.com/drblury/matchwire/internal/runtime/logging"
	messagespkg "github.com/drblury/matchwire/internal/runtime/messages"
	metadatapkg "github.com/drblury/matchwire/internal/runtime/metadata"
)

const tracerName = "github.com/drblury/matchwire"

// MiddlewareBuilder constructs a handler middleware using the provided service instance.
type MiddlewareBuilder func(*Service) (message.HandlerMiddleware, error)

// MiddlewareRegistration captures how a middleware should be registered on a Service router.
type MiddlewareRegistration struct {
	Name       string
	Middleware message.HandlerMiddleware
	Builder    MiddlewareBuilder
}

// RetryMiddlewareConfig customises the retry middleware behaviour. Zero values
// fall back to the service configuration, then to library defaults.
type RetryMiddlewareConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	RetryIf         func(error) bool
}

func (cfg RetryMiddlewareConfig) withDefaults() RetryMiddlewareConfig {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = time.Second
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 16 * time.Second
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = shouldRetry
	}
	return cfg
}

// shouldRetry refuses protocol errors: a payload that failed to decode will
// fail the same way on every attempt.
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var unprocessable *UnprocessableEventError
	if errors.As(err, &unprocessable) {
		return false
	}
	return !errspkg.IsProtocolError(err)
}

// isPoison selects the errors the poison queue takes.
func isPoison(err error) bool {
	var unprocessable *UnprocessableEventError
	return errors.As(err, &unprocessable) || errspkg.IsProtocolError(err)
}

// DefaultMiddlewares returns the standard middleware chain used by the Service
// constructor, outermost first. The poison queue wraps retry so that protocol
// errors, which are never retried, still reach it.
func DefaultMiddlewares() []MiddlewareRegistration {
	return []MiddlewareRegistration{
		CorrelationIDMiddleware(),
		LogMessagesMiddleware(nil),
		TracerMiddleware(),
		MetricsMiddleware(),
		PoisonQueueMiddleware(nil),
		RetryMiddleware(RetryMiddlewareConfig{}),
		EnvelopeValidateMiddleware(),
		RecovererMiddleware(),
	}
}

// MetricsMiddleware adds Prometheus router metrics and serves /metrics on
// MetricsPort. The router metrics decorate the router directly, so no
// handler middleware is returned.
func MetricsMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "metrics",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			if !s.Conf.MetricsEnabled {
				return nil, nil
			}

			metricsBuilder := metrics.NewPrometheusMetricsBuilder(
				s.registerer,
				"matchwire",
				s.Conf.PubSubSystem,
			)
			metricsBuilder.AddPrometheusRouterMetrics(s.router)

			if s.Conf.MetricsPort > 0 {
				s.RegisterHTTPHandler(s.Conf.MetricsPort, "/metrics", s.metricsHandler())
			}
			return nil, nil
		},
	}
}

// metricsHandler serves the registerer's collectors when it can also gather them.
func (s *Service) metricsHandler() http.Handler {
	if gatherer, ok := s.registerer.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

// CorrelationIDMiddleware ensures each processed message carries a correlation identifier.
func CorrelationIDMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "correlation_id",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			return correlationIDMiddleware, nil
		},
	}
}

// LogMessagesMiddleware logs every handled envelope at debug level.
func LogMessagesMiddleware(logger loggingpkg.ServiceLogger) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "log_messages",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			l := logger
			if l == nil {
				l = s.Logger
			}
			if l == nil {
				return nil, errors.New("log messages middleware requires a logger")
			}
			return s.logMessagesMiddleware(l), nil
		},
	}
}

// EnvelopeValidateMiddleware decodes every payload with the service codec
// before the handler runs. Envelopes that cannot be decoded are rejected with
// an UnprocessableEventError, unless the tag is unknown and the service skips
// unknown tags, in which case the message is acked.
func EnvelopeValidateMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "envelope_validate",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			return s.envelopeValidateMiddleware(), nil
		},
	}
}

// TracerMiddleware wraps handler execution in an OpenTelemetry span.
func TracerMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "tracer",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			return tracerMiddleware, nil
		},
	}
}

// RetryMiddleware retries handler execution with exponential backoff.
func RetryMiddleware(cfg RetryMiddlewareConfig) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "retry",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			if cfg.MaxRetries <= 0 {
				cfg.MaxRetries = s.Conf.RetryMaxRetries
			}
			if cfg.InitialInterval <= 0 {
				cfg.InitialInterval = s.Conf.RetryInitialInterval
			}
			if cfg.MaxInterval <= 0 {
				cfg.MaxInterval = s.Conf.RetryMaxInterval
			}
			return retryMiddlewareWithConfig(cfg), nil
		},
	}
}

// PoisonQueueMiddleware publishes messages whose error matches filter to the
// poison queue. A nil filter selects protocol errors.
func PoisonQueueMiddleware(filter func(error) bool) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "poison_queue",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			f := filter
			if f == nil {
				f = isPoison
			}
			return s.poisonMiddlewareWithFilter(f)
		},
	}
}

// RecovererMiddleware converts panics into handler errors so they can be retried.
func RecovererMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name:       "recoverer",
		Middleware: middleware.Recoverer,
	}
}

// RegisterMiddleware attaches the supplied middleware to the router.
func (s *Service) RegisterMiddleware(cfg MiddlewareRegistration) error {
	if s.router == nil {
		return errors.New("router is not initialised")
	}

	var mw message.HandlerMiddleware
	switch {
	case cfg.Middleware != nil:
		mw = cfg.Middleware
	case cfg.Builder != nil:
		var err error
		mw, err = cfg.Builder(s)
		if err != nil {
			return err
		}
	default:
		return errors.New("middleware registration requires Middleware or Builder")
	}

	if mw == nil {
		return nil
	}

	s.router.AddMiddleware(mw)
	return nil
}

func correlationIDMiddleware(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		if msg.Metadata.Get(metadatapkg.KeyCorrelationID) == "" {
			msg.Metadata.Set(metadatapkg.KeyCorrelationID, idspkg.CreateULID())
		}
		return h(msg)
	}
}

func (s *Service) envelopeValidateMiddleware() message.HandlerMiddleware {
	registry := s.codec.Registry()
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			decoded, err := s.codec.Decode(msg.Payload)
			if err != nil {
				kind := messagespkg.ErrorKind(err)
				s.metrics.EnvelopeFailed(kind)

				tag, _ := messagespkg.PeekTag(msg.Payload)
				fields := loggingpkg.EnvelopeFields(tag.String(), registry.Name(tag), kind)
				fields[loggingpkg.FieldUUID] = msg.UUID

				if s.Conf.SkipUnknownTags() && errors.Is(err, errspkg.ErrUnknownTag) {
					s.Logger.Info("Skipping envelope with unknown tag", fields)
					return nil, nil
				}
				s.Logger.Error("Rejecting envelope", err, fields)
				return nil, &UnprocessableEventError{UUID: msg.UUID, Tag: tag, Err: err}
			}

			s.metrics.EnvelopeDecoded(registry.Name(decoded.Tag()))
			msg.SetContext(handlerpkg.WithDecoded(msg.Context(), decoded))
			return h(msg)
		}
	}
}

func (s *Service) poisonMiddlewareWithFilter(filter func(err error) bool) (message.HandlerMiddleware, error) {
	if s.Conf == nil {
		return nil, errors.New("service config is required for poison queue middleware")
	}
	if s.publisher == nil {
		return nil, errors.New("publisher is required for poison queue middleware")
	}

	topic := s.Conf.PoisonQueue
	if topic == "" {
		topic = s.Conf.Prefix() + ".poison"
	}
	return middleware.PoisonQueueWithFilter(s.publisher, topic, filter)
}

func (s *Service) logMessagesMiddleware(logger loggingpkg.ServiceLogger) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			fields := loggingpkg.LogFields{
				loggingpkg.FieldUUID: msg.UUID,
				"payload_bytes":      len(msg.Payload),
				"metadata":           msg.Metadata,
			}
			if tag, err := messagespkg.PeekTag(msg.Payload); err == nil {
				fields[loggingpkg.FieldTag] = tag.String()
			}
			logger.Debug("Processing envelope", fields)
			return h(msg)
		}
	}
}

func retryMiddlewareWithConfig(cfg RetryMiddlewareConfig) message.HandlerMiddleware {
	normalized := cfg.withDefaults()
	return middleware.Retry{
		MaxRetries:      normalized.MaxRetries,
		InitialInterval: normalized.InitialInterval,
		MaxInterval:     normalized.MaxInterval,
		ShouldRetry: func(params middleware.RetryParams) bool {
			return normalized.RetryIf(params.Err)
		},
	}.Middleware
}

func tracerMiddleware(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		ctx, span := otel.Tracer(tracerName).Start(msg.Context(), "matchwire.HandleEnvelope")
		defer span.End()
		msg.SetContext(ctx)

		attrs := []attribute.KeyValue{
			attribute.String("message.uuid", msg.UUID),
			attribute.String("messaging.destination", message.SubscribeTopicFromCtx(ctx)),
		}
		if tag, err := messagespkg.PeekTag(msg.Payload); err == nil {
			attrs = append(attrs,
				attribute.String("matchwire.tag", tag.String()),
				attribute.String("matchwire.direction", tag.Direction().String()),
			)
		}
		span.SetAttributes(attrs...)

		out, err := h(msg)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return out, err
	}
}
