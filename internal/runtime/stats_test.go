package runtime

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/matchwire/internal/runtime/errors"
	jsoncodec "github.com/drblury/matchwire/internal/runtime/jsoncodec"
	messagespkg "github.com/drblury/matchwire/internal/runtime/messages"
)

func TestDefaultErrorClassifier(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorCategory
	}{
		{nil, ErrorCategoryNone},
		{&messagespkg.UnknownTagError{Tag: 0x9999}, ErrorCategoryUnknownTag},
		{&messagespkg.MalformedPayloadError{Tag: 0x3003, Err: errors.New("eof")}, ErrorCategoryMalformedPayload},
		{&messagespkg.TagMismatchError{Envelope: 0x3003, Decoded: 0x3004}, ErrorCategoryTagMismatch},
		{fmt.Errorf("wrapped: %w", errspkg.ErrUnknownTag), ErrorCategoryUnknownTag},
		{context.DeadlineExceeded, ErrorCategoryDownstream},
		{errors.New("other"), ErrorCategoryOther},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, defaultErrorClassifier(tc.err), "%v", tc.err)
	}
}

func TestErrorBreakdownRecord(t *testing.T) {
	var b ErrorBreakdown
	b.Record(ErrorCategoryNone, nil)
	b.Record(ErrorCategoryUnknownTag, errors.New("a"))
	b.Record(ErrorCategoryMalformedPayload, errors.New("b"))
	b.Record(ErrorCategoryTagMismatch, errors.New("c"))
	b.Record(ErrorCategoryDownstream, errors.New("d"))
	b.Record(ErrorCategory("custom"), errors.New("e"))
	b.Record(ErrorCategoryNone, errors.New("f"))

	assert.Equal(t, ErrorBreakdown{
		UnknownTag:       1,
		MalformedPayload: 1,
		TagMismatch:      1,
		Downstream:       1,
		Other:            2,
		LastError:        "f",
	}, b)
}

func TestHandlerStatsCustomClassifier(t *testing.T) {
	stats := newHandlerStats()
	stats.onMessageStart()
	assert.Equal(t, uint64(1), stats.InFlight)

	stats.onMessageFinish(5*time.Millisecond, errors.New("x"), func(error) ErrorCategory { return ErrorCategoryDownstream })
	assert.Zero(t, stats.InFlight)
	assert.Equal(t, uint64(1), stats.Errors.Downstream)
	assert.Equal(t, int64(5*time.Millisecond), stats.Latency.LastNs)
	assert.Equal(t, uint64(1), stats.Throughput.MessagesInWindow)
}

func TestHandlerStatsMarshalJSON(t *testing.T) {
	stats := newHandlerStats()
	stats.onMessageFinish(time.Millisecond, nil, nil)

	data, err := jsoncodec.Marshal(stats)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, jsoncodec.Unmarshal(data, &decoded))
	assert.EqualValues(t, 1, decoded["messages_processed"])
	assert.Contains(t, decoded, "latency")
	assert.Contains(t, decoded, "errors")
}

func TestLatencyWindowWraps(t *testing.T) {
	lw := newLatencyWindow(3)
	for _, ms := range []int{1, 2, 3, 4} {
		lw.Add(time.Duration(ms) * time.Millisecond)
	}
	snap := lw.Snapshot()
	assert.Equal(t, 3, snap.SampleSize)
	assert.Equal(t, int64(3*time.Millisecond), snap.P50Ns)
	assert.Equal(t, int64(4*time.Millisecond), snap.LastNs)
	assert.Equal(t, int64(3*time.Millisecond), snap.AverageNs)
}

func TestPercentile(t *testing.T) {
	samples := []int64{10, 20, 30, 40}
	assert.Zero(t, percentile(nil, 0.5))
	assert.Equal(t, int64(10), percentile(samples, 0))
	assert.Equal(t, int64(40), percentile(samples, 1))
	assert.Equal(t, int64(25), percentile(samples, 0.5))
}

func TestThroughputWindowDropsOldSamples(t *testing.T) {
	tw := newThroughputWindow(time.Second)
	start := time.Now()
	tw.AddAndSnapshot(start)
	tw.AddAndSnapshot(start.Add(500 * time.Millisecond))
	snap := tw.AddAndSnapshot(start.Add(2 * time.Second))
	assert.Equal(t, 1, snap.Count)
}
