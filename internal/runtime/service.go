package runtime

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/plugin"
	"github.com/prometheus/client_golang/prometheus"

	configpkg "github.com/drblury/matchwire/internal/runtime/config"
	errspkg "github.com/drblury/matchwire/internal/runtime/errors"
	loggingpkg "github.com/drblury/matchwire/internal/runtime/logging"
	messagespkg "github.com/drblury/matchwire/internal/runtime/messages"
	transportpkg "github.com/drblury/matchwire/internal/runtime/transport"
)

var routerRun = func(router *message.Router, ctx context.Context) error {
	return router.Run(ctx)
}

// ServiceDependencies holds the optional collaborators that the Service can use.
type ServiceDependencies struct {
	// Codec defaults to the built-in catalog.
	Codec                     *messagespkg.Codec
	Middlewares               []MiddlewareRegistration // Appended after the default middleware chain.
	DisableDefaultMiddlewares bool                     // Skips registering the default middleware chain when true.
	TransportFactory          transportpkg.Factory
	ErrorClassifier           ErrorClassifier
	// Registerer receives the protocol and router collectors. Defaults to
	// prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// Service owns the transport around the envelope codec: a Watermill router,
// publisher, subscriber and middleware chain.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	codec      *messagespkg.Codec
	metrics    *ProtocolMetrics
	registerer prometheus.Registerer

	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router

	handlers   []*HandlerInfo
	handlersMu sync.RWMutex

	httpServers   map[int]*http.ServeMux
	httpServersMu sync.Mutex

	errorClassifier ErrorClassifier
	running         atomic.Bool
}

// NewService constructs a Service for the supplied configuration and panics
// when the configuration is invalid or the transport cannot be built. Register
// handlers on the returned Service before calling Start.
func NewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps ServiceDependencies) *Service {
	s, err := TryNewService(conf, log, ctx, deps)
	if err != nil {
		panic(err)
	}
	return s
}

// TryNewService is NewService with the construction error returned instead of raised.
func TryNewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps ServiceDependencies) (*Service, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if err := errspkg.NewConfigValidationError(conf.Validate()); err != nil {
		return nil, err
	}

	wmLogger := loggingpkg.NewWatermillAdapter(log)
	log.Info("Creating relay service",
		loggingpkg.LogFields{
			"pubsub_system": conf.PubSubSystem,
			"topic_prefix":  conf.Prefix(),
			"config":        conf,
		})

	codec := deps.Codec
	if codec == nil {
		codec = messagespkg.DefaultCodec()
	}
	registerer := deps.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	s := &Service{
		Conf:            conf,
		Logger:          log,
		codec:           codec,
		registerer:      registerer,
		metrics:         NewProtocolMetrics(registerer),
		errorClassifier: deps.ErrorClassifier,
	}
	if s.errorClassifier == nil {
		s.errorClassifier = defaultErrorClassifier
	}
	if conf.MetricsEnabled {
		if err := s.metrics.Register(); err != nil {
			return nil, fmt.Errorf("register protocol metrics: %w", err)
		}
	}

	factory := deps.TransportFactory
	if factory == nil {
		factory = transportpkg.DefaultFactory()
	}
	transport, err := factory.Build(ctx, conf, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("build %s transport: %w", conf.PubSubSystem, err)
	}

	s.publisher = transport.Publisher
	s.subscriber = transport.Subscriber

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, err
	}

	s.router = router
	s.router.AddPlugin(plugin.SignalsHandler)

	if err := s.registerConfiguredMiddlewares(deps); err != nil {
		return nil, err
	}

	return s, nil
}

// Start runs the underlying Watermill router until the provided context is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.StartStatusServer()
	s.startHTTPServers()
	s.running.Store(true)
	defer s.running.Store(false)
	return routerRun(s.router, ctx)
}

// Running reports whether Start is executing.
func (s *Service) Running() bool {
	return s.running.Load()
}

// Codec returns the envelope codec every handler and publisher of the service shares.
func (s *Service) Codec() *messagespkg.Codec {
	return s.codec
}

// Metrics returns the protocol counters.
func (s *Service) Metrics() *ProtocolMetrics {
	return s.metrics
}

// TopicFor returns the topic envelopes with the given tag are published to by default.
func (s *Service) TopicFor(tag messagespkg.Tag) string {
	return Topic(s.Conf.Prefix(), tag.Direction())
}

// Topic joins a prefix and a direction into a topic name.
func Topic(prefix string, dir messagespkg.Direction) string {
	if prefix == "" {
		prefix = configpkg.DefaultTopicPrefix
	}
	return prefix + "." + dir.String()
}

func (s *Service) registerConfiguredMiddlewares(deps ServiceDependencies) error {
	var defaults []MiddlewareRegistration
	if !deps.DisableDefaultMiddlewares {
		defaults = DefaultMiddlewares()
	}
	registrations := make([]MiddlewareRegistration, 0, len(defaults)+len(deps.Middlewares))
	registrations = append(registrations, defaults...)
	registrations = append(registrations, deps.Middlewares...)

	for _, reg := range registrations {
		if err := s.RegisterMiddleware(reg); err != nil {
			name := reg.Name
			if name == "" {
				name = "anonymous_middleware"
			}
			return fmt.Errorf("failed to register middleware %s: %w", name, err)
		}
	}
	return nil
}

func (s *Service) getErrorClassifier() ErrorClassifier {
	if s.errorClassifier == nil {
		return defaultErrorClassifier
	}
	return s.errorClassifier
}

// RegisterHTTPHandler mounts handler on the mux served at port once Start runs.
func (s *Service) RegisterHTTPHandler(port int, pattern string, handler http.Handler) {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	if s.httpServers == nil {
		s.httpServers = make(map[int]*http.ServeMux)
	}

	mux, ok := s.httpServers[port]
	if !ok {
		mux = http.NewServeMux()
		s.httpServers[port] = mux
	}

	mux.Handle(pattern, handler)
}

func (s *Service) startHTTPServers() {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	for port, mux := range s.httpServers {
		addr := fmt.Sprintf(":%d", port)
		s.Logger.Info("Starting HTTP server", loggingpkg.LogFields{"address": addr})
		go func(addr string, handler http.Handler) {
			if err := http.ListenAndServe(addr, handler); err != nil {
				s.Logger.Error("Failed to start HTTP server", err, loggingpkg.LogFields{"address": addr})
			}
		}(addr, mux)
	}
}
