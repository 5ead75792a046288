package netpipe

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// executor enforces the single-logical-executor contract: at most one root
// dispatch runs per channel at a time, while calls made from within that
// dispatch (handlers re-entering the channel's own operations) run inline
// as synchronous reentrant calls rather than deferred tasks.
//
// Root dispatches from foreign goroutines serialize on the mutex; nested
// dispatches are detected by goroutine identity and bypass it, preserving
// the exact interleavings the pipeline contract requires.
type executor struct {
	mu      sync.Mutex
	owner   atomic.Uint64
	metrics *Metrics
}

// Do runs fn under the channel's executor.
func (e *executor) Do(fn func()) {
	id := goroutineID()
	if e.owner.Load() == id {
		// Reentrant call from within an in-progress dispatch: run inline,
		// to completion, before control returns to the caller's frame.
		e.metrics.recordNestedDispatch()
		fn()
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.owner.Store(id)
	defer e.owner.Store(0)
	fn()
}

// inExecutor reports whether the calling goroutine currently owns a
// dispatch on this executor.
func (e *executor) inExecutor() bool {
	return e.owner.Load() == goroutineID()
}

// goroutineID returns the current goroutine's ID.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
