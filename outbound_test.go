package netpipe

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// watermarkChannel builds a channel with no transport so the test drives
// enqueue/complete explicitly, recording only writability transitions.
func watermarkChannel(t *testing.T, high, low uint64) (*Channel, *EventRecorder) {
	t.Helper()
	rec := NewEventRecorder(EventWritability)
	ch, err := New(
		WithLogger(nil),
		WithWatermarks(high, low),
		WithRecorder(rec),
	)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return ch, rec
}

// writability extracts just the boolean transition sequence.
func writability(rec *EventRecorder) []bool {
	var out []bool
	for _, r := range rec.Records() {
		out = append(out, r.Writable)
	}
	return out
}

func TestWatermarkCrossingFiresOnce(t *testing.T) {
	ch, rec := watermarkChannel(t, 1000, 500)

	ch.Write(testPayload(600))
	require.True(t, ch.IsWritable())
	require.Empty(t, writability(rec))

	// 1200 > 1000: exactly one downward edge.
	ch.Write(testPayload(600))
	require.False(t, ch.IsWritable())
	require.Equal(t, []bool{false}, writability(rec))

	// Staying above the high mark fires nothing further.
	ch.Write(testPayload(600))
	ch.Write(testPayload(600))
	require.Equal(t, []bool{false}, writability(rec))

	// Draining to 1200, then 600: still above the low mark, no event.
	require.NoError(t, ch.CompleteOldest(nil))
	require.NoError(t, ch.CompleteOldest(nil))
	require.Equal(t, []bool{false}, writability(rec))
	require.False(t, ch.IsWritable())

	// 0 <= 500: exactly one upward edge.
	require.NoError(t, ch.CompleteOldest(nil))
	require.NoError(t, ch.CompleteOldest(nil))
	require.Equal(t, []bool{false, true}, writability(rec))
	require.True(t, ch.IsWritable())
}

func TestWatermarkExactBoundaries(t *testing.T) {
	ch, rec := watermarkChannel(t, 1000, 500)

	// pendingBytes == high is not a crossing; strictly greater is.
	ch.Write(testPayload(1000))
	require.True(t, ch.IsWritable())
	require.Empty(t, writability(rec))

	ch.Write(testPayload(1))
	require.False(t, ch.IsWritable())
	require.Equal(t, []bool{false}, writability(rec))

	// Draining the 1000-byte write leaves exactly 1 <= 500: upward edge.
	require.NoError(t, ch.CompleteOldest(nil))
	require.True(t, ch.IsWritable())
	require.Equal(t, []bool{false, true}, writability(rec))
}

func TestWatermarkEqualHighLow(t *testing.T) {
	// high == low collapses to a single hysteresis-free threshold and
	// must still not double-fire.
	ch, rec := watermarkChannel(t, 1000, 1000)

	ch.Write(testPayload(1000))
	require.Empty(t, writability(rec))

	ch.Write(testPayload(1))
	require.Equal(t, []bool{false}, writability(rec))

	ch.Write(testPayload(1))
	require.Equal(t, []bool{false}, writability(rec))

	require.NoError(t, ch.CompleteOldest(nil)) // pending 2 <= 1000
	require.Equal(t, []bool{false, true}, writability(rec))

	require.NoError(t, ch.CompleteOldest(nil))
	require.NoError(t, ch.CompleteOldest(nil))
	require.Equal(t, []bool{false, true}, writability(rec))
}

func TestWatermarkOscillation(t *testing.T) {
	ch, rec := watermarkChannel(t, 1000, 500)

	for i := 0; i < 3; i++ {
		ch.Write(testPayload(1200))
		require.NoError(t, ch.CompleteOldest(nil))
	}
	require.Equal(t, []bool{false, true, false, true, false, true}, writability(rec))
}

func TestWatermarkZeroSizedWrites(t *testing.T) {
	ch, rec := watermarkChannel(t, 1000, 500)

	for i := 0; i < 10; i++ {
		ch.Write(nil)
	}
	require.Zero(t, ch.PendingBytes())
	require.Empty(t, writability(rec))

	for i := 0; i < 10; i++ {
		require.NoError(t, ch.CompleteOldest(nil))
	}
	require.ErrorIs(t, ch.CompleteOldest(nil), ErrNoPendingWrites)
}

func TestCompleteOldestFailureOutcome(t *testing.T) {
	ch, _ := watermarkChannel(t, 1000, 500)

	token := ch.Write(testPayload(100))
	require.NoError(t, ch.CompleteOldest(errIntentional))
	require.True(t, token.Completed())
	require.ErrorIs(t, token.Err(), errIntentional)
}

func TestNoWritabilityEventsDuringTeardown(t *testing.T) {
	ch, rec := watermarkChannel(t, 1000, 500)

	ch.Write(testPayload(2000))
	require.Equal(t, []bool{false}, writability(rec))

	// Teardown fails the pending write without an upward edge.
	require.NoError(t, ch.Close().Err())
	require.Equal(t, []bool{false}, writability(rec))
	require.False(t, ch.IsWritable())
}
