package runtime

import (
	"context"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	configpkg "github.com/drblury/matchwire/internal/runtime/config"
	loggingpkg "github.com/drblury/matchwire/internal/runtime/logging"
	messagespkg "github.com/drblury/matchwire/internal/runtime/messages"
	transportpkg "github.com/drblury/matchwire/internal/runtime/transport"
	"github.com/drblury/matchwire/transport/transporttest"
)

type logEntry struct {
	level  string
	msg    string
	err    error
	fields loggingpkg.LogFields
}

// recordingLogger keeps every log line, including those of derived loggers.
type recordingLogger struct {
	mu      *sync.Mutex
	entries *[]logEntry
	base    loggingpkg.LogFields
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{mu: &sync.Mutex{}, entries: &[]logEntry{}}
}

func (l *recordingLogger) record(level, msg string, err error, fields loggingpkg.LogFields) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, logEntry{level: level, msg: msg, err: err, fields: l.base.Merge(fields)})
}

func (l *recordingLogger) With(fields loggingpkg.LogFields) loggingpkg.ServiceLogger {
	return &recordingLogger{mu: l.mu, entries: l.entries, base: l.base.Merge(fields)}
}

func (l *recordingLogger) Debug(msg string, fields loggingpkg.LogFields) {
	l.record("debug", msg, nil, fields)
}

func (l *recordingLogger) Info(msg string, fields loggingpkg.LogFields) {
	l.record("info", msg, nil, fields)
}

func (l *recordingLogger) Error(msg string, err error, fields loggingpkg.LogFields) {
	l.record("error", msg, err, fields)
}

func (l *recordingLogger) Trace(msg string, fields loggingpkg.LogFields) {
	l.record("trace", msg, nil, fields)
}

func (l *recordingLogger) Entries() []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]logEntry(nil), (*l.entries)...)
}

func (l *recordingLogger) find(msg string) (logEntry, bool) {
	for _, e := range l.Entries() {
		if e.msg == msg {
			return e, true
		}
	}
	return logEntry{}, false
}

type testHarness struct {
	svc        *Service
	logger     *recordingLogger
	publisher  *transporttest.Publisher
	subscriber *transporttest.Subscriber
	registry   *prometheus.Registry
}

func fakeTransportFactory(pub *transporttest.Publisher, sub *transporttest.Subscriber) transportpkg.Factory {
	return transportpkg.FactoryFunc(func(context.Context, *configpkg.Config, watermill.LoggerAdapter) (transportpkg.Transport, error) {
		return transportpkg.Transport{Publisher: pub, Subscriber: sub}, nil
	})
}

// newTestHarness builds a service over fake transports and a private
// Prometheus registry. deps fields left empty are filled in.
func newTestHarness(t *testing.T, conf *configpkg.Config, deps ServiceDependencies) *testHarness {
	t.Helper()
	if conf == nil {
		conf = &configpkg.Config{PubSubSystem: "channel"}
	}
	h := &testHarness{
		logger:     newRecordingLogger(),
		publisher:  &transporttest.Publisher{},
		subscriber: &transporttest.Subscriber{},
		registry:   prometheus.NewRegistry(),
	}
	if deps.TransportFactory == nil {
		deps.TransportFactory = fakeTransportFactory(h.publisher, h.subscriber)
	}
	if deps.Registerer == nil {
		deps.Registerer = h.registry
	}

	svc, err := TryNewService(conf, h.logger, context.Background(), deps)
	require.NoError(t, err)
	h.svc = svc
	return h
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return newTestHarness(t, nil, ServiceDependencies{}).svc
}

func mustEncode(t *testing.T, msg messagespkg.Message) []byte {
	t.Helper()
	payload, err := messagespkg.Encode(msg)
	require.NoError(t, err)
	return payload
}
