package transport

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
)

var (
	ErrUnknownTransport    = errors.New("unknown transport")
	ErrIncompleteTransport = errors.New("transport is missing a publisher or subscriber")
)

type registration struct {
	build Builder
	caps  Capabilities
}

// Registry maps PubSubSystem names to builders and capabilities. Backend
// packages register themselves from init.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registration
}

// DefaultRegistry holds every backend imported by the binary.
var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registration)}
}

// Register adds a builder without capabilities. Registering a name twice
// replaces the builder but keeps capabilities registered earlier.
func (r *Registry) Register(name string, builder Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[name]
	if !ok {
		entry.caps = Capabilities{Name: name}
	}
	entry.build = builder
	r.entries[name] = entry
}

func (r *Registry) RegisterWithCapabilities(name string, builder Builder, caps Capabilities) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = registration{build: builder, caps: caps}
}

// GetCapabilities returns the capabilities registered for name, or a value
// carrying only the name when nothing is known about it.
func (r *Registry) GetCapabilities(name string) Capabilities {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.entries[name]; ok {
		return entry.caps
	}
	return Capabilities{Name: name}
}

// Build runs the builder registered for cfg's PubSubSystem. A builder that
// hands back only one side of the pub/sub pair is an error; the side it did
// open is closed.
func (r *Registry) Build(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error) {
	if cfg == nil {
		return Transport{}, errors.New("config is required")
	}
	name := cfg.GetPubSubSystem()

	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return Transport{}, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownTransport, name, r.Names())
	}

	t, err := entry.build(ctx, cfg, logger)
	if err != nil {
		return Transport{}, err
	}
	if t.Publisher == nil || t.Subscriber == nil {
		closeAll(t)
		return Transport{}, fmt.Errorf("%s: %w", name, ErrIncompleteTransport)
	}
	return t, nil
}

func closeAll(t Transport) {
	if t.Publisher != nil {
		_ = t.Publisher.Close()
	}
	if t.Subscriber != nil {
		_ = t.Subscriber.Close()
	}
}

// Names returns the registered transport names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.entries))
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Register adds a transport builder to the default registry.
func Register(name string, builder Builder) {
	DefaultRegistry.Register(name, builder)
}

// RegisterWithCapabilities adds a transport builder and its capabilities to the default registry.
func RegisterWithCapabilities(name string, builder Builder, caps Capabilities) {
	DefaultRegistry.RegisterWithCapabilities(name, builder, caps)
}

// Build creates a transport using the default registry.
func Build(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error) {
	return DefaultRegistry.Build(ctx, cfg, logger)
}
