package netpipe

import (
	"sync/atomic"
)

// Metrics collects per-channel runtime counters. Collection is opt-in via
// [WithMetrics]; all methods are nil-safe so the hot paths carry no
// conditionals, and all counters are atomics so snapshots are safe from
// any goroutine.
type Metrics struct {
	writes             atomic.Uint64
	flushes            atomic.Uint64
	closes             atomic.Uint64
	writabilityChanges atomic.Uint64
	exceptions         atomic.Uint64
	bytesEnqueued      atomic.Uint64
	bytesCompleted     atomic.Uint64
	nestedDispatches   atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of a channel's counters.
type MetricsSnapshot struct {
	// Writes is the number of write dispatches, including writes
	// initiated by handlers from within other dispatches.
	Writes uint64
	// Flushes is the number of flush dispatches.
	Flushes uint64
	// Closes is the number of teardowns performed (0 or 1).
	Closes uint64
	// WritabilityChanges is the number of watermark crossings.
	WritabilityChanges uint64
	// Exceptions is the number of failures signalled by handlers.
	Exceptions uint64
	// BytesEnqueued is the byte total accepted by the outbound buffer.
	BytesEnqueued uint64
	// BytesCompleted is the byte total drained by the transport.
	BytesCompleted uint64
	// NestedDispatches is the number of reentrant dispatches run inline
	// on the executor.
	NestedDispatches uint64
}

// Snapshot returns the current counter values; the zero value on a nil
// receiver.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		Writes:             m.writes.Load(),
		Flushes:            m.flushes.Load(),
		Closes:             m.closes.Load(),
		WritabilityChanges: m.writabilityChanges.Load(),
		Exceptions:         m.exceptions.Load(),
		BytesEnqueued:      m.bytesEnqueued.Load(),
		BytesCompleted:     m.bytesCompleted.Load(),
		NestedDispatches:   m.nestedDispatches.Load(),
	}
}

func (m *Metrics) recordWrite() {
	if m != nil {
		m.writes.Add(1)
	}
}

func (m *Metrics) recordFlush() {
	if m != nil {
		m.flushes.Add(1)
	}
}

func (m *Metrics) recordClose() {
	if m != nil {
		m.closes.Add(1)
	}
}

func (m *Metrics) recordWritabilityChange() {
	if m != nil {
		m.writabilityChanges.Add(1)
	}
}

func (m *Metrics) recordException() {
	if m != nil {
		m.exceptions.Add(1)
	}
}

func (m *Metrics) recordBytesEnqueued(n uint64) {
	if m != nil {
		m.bytesEnqueued.Add(n)
	}
}

func (m *Metrics) recordBytesCompleted(n uint64) {
	if m != nil {
		m.bytesCompleted.Add(n)
	}
}

func (m *Metrics) recordNestedDispatch() {
	if m != nil {
		m.nestedDispatches.Add(1)
	}
}
