package runtime

import (
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProtocolMetrics counts envelopes by variant and codec failures by kind. It
// keeps its own totals next to the Prometheus collectors so the status API and
// tests can read them without scraping.
type ProtocolMetrics struct {
	mu      sync.RWMutex
	encoded map[string]uint64
	decoded map[string]uint64
	errors  map[string]uint64

	encodedTotal *prometheus.CounterVec
	decodedTotal *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec

	registerer prometheus.Registerer
	registered bool
}

// ProtocolMetricsSnapshot is a point-in-time copy of the counters.
type ProtocolMetricsSnapshot struct {
	Encoded     map[string]uint64 `json:"encoded"`
	Decoded     map[string]uint64 `json:"decoded"`
	Errors      map[string]uint64 `json:"errors"`
	CollectedAt time.Time         `json:"collected_at"`
}

func newProtocolCounterVec(name, help, label string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchwire",
			Subsystem: "protocol",
			Name:      name,
			Help:      help,
		},
		[]string{label},
	)
}

// NewProtocolMetrics creates the collectors. Nothing is registered until Register.
func NewProtocolMetrics(registerer prometheus.Registerer) *ProtocolMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &ProtocolMetrics{
		encoded:      make(map[string]uint64),
		decoded:      make(map[string]uint64),
		errors:       make(map[string]uint64),
		encodedTotal: newProtocolCounterVec("encoded_total", "Envelopes encoded, by message variant", "message"),
		decodedTotal: newProtocolCounterVec("decoded_total", "Envelopes decoded, by message variant", "message"),
		errorsTotal:  newProtocolCounterVec("errors_total", "Envelopes rejected by the codec, by error kind", "kind"),
		registerer:   registerer,
	}
}

// Register registers the collectors. Safe to call multiple times; collectors
// already registered by another service are reused.
func (m *ProtocolMetrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	for _, vec := range []**prometheus.CounterVec{&m.encodedTotal, &m.decodedTotal, &m.errorsTotal} {
		if err := m.registerer.Register(*vec); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
			existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				return err
			}
			*vec = existing
		}
	}
	m.registered = true
	return nil
}

func (m *ProtocolMetrics) EnvelopeEncoded(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.encoded[name]++
	m.encodedTotal.WithLabelValues(name).Inc()
}

func (m *ProtocolMetrics) EnvelopeDecoded(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decoded[name]++
	m.decodedTotal.WithLabelValues(name).Inc()
}

// EnvelopeFailed records a codec failure. An empty kind is counted as "other".
func (m *ProtocolMetrics) EnvelopeFailed(kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "other"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
	m.errorsTotal.WithLabelValues(kind).Inc()
}

func (m *ProtocolMetrics) Snapshot() ProtocolMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ProtocolMetricsSnapshot{
		Encoded:     maps.Clone(m.encoded),
		Decoded:     maps.Clone(m.decoded),
		Errors:      maps.Clone(m.errors),
		CollectedAt: time.Now(),
	}
}

// Reset clears every counter.
func (m *ProtocolMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.encoded = make(map[string]uint64)
	m.decoded = make(map[string]uint64)
	m.errors = make(map[string]uint64)
	m.encodedTotal.Reset()
	m.decodedTotal.Reset()
	m.errorsTotal.Reset()
}
