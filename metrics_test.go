package netpipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsNilReceiver(t *testing.T) {
	var m *Metrics
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())

	// Record methods must be no-ops, not panics.
	m.recordWrite()
	m.recordFlush()
	m.recordClose()
	m.recordWritabilityChange()
	m.recordException()
	m.recordBytesEnqueued(1)
	m.recordBytesCompleted(1)
	m.recordNestedDispatch()
}

func TestMetricsCountScenario(t *testing.T) {
	tr := &drainTransport{}
	ch, err := New(
		WithLogger(nil),
		WithTransport(tr),
		WithWatermarks(1000, 500),
		WithMetrics(true),
	)
	require.NoError(t, err)

	ch.WriteAndFlush(testPayload(1200)) // crosses high, then drains below low
	ch.Write(testPayload(100))
	ch.Flush()
	require.NoError(t, ch.Close().Err())

	s := ch.Metrics().Snapshot()
	assert.Equal(t, uint64(2), s.Writes)
	assert.Equal(t, uint64(2), s.Flushes)
	assert.Equal(t, uint64(1), s.Closes)
	assert.Equal(t, uint64(2), s.WritabilityChanges)
	assert.Equal(t, uint64(0), s.Exceptions)
	assert.Equal(t, uint64(1300), s.BytesEnqueued)
	assert.Equal(t, uint64(1300), s.BytesCompleted)
}

func TestMetricsCountsHandlerFailure(t *testing.T) {
	ch, err := New(WithLogger(nil), WithMetrics(true))
	require.NoError(t, err)
	require.NoError(t, ch.Pipeline().AddLast("failing", failer{}))

	ch.Flush()

	s := ch.Metrics().Snapshot()
	assert.Equal(t, uint64(1), s.Exceptions)
}
