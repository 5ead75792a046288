package netpipe

import (
	"context"
	"sync"
)

// Future is the completion token associated with an asynchronous channel
// operation. Exactly one of success (nil error) or failure is set, exactly
// once; later settle attempts are ignored.
//
// Listener semantics follow attach-time branching: a listener added before
// settlement runs synchronously in the execution context that settles the
// future; a listener added after settlement runs immediately, inline on the
// attaching context. There is no hand-off to another scheduling context, so
// listeners observe the channel's event order exactly as dispatched (a
// listener may, for example, close the channel and see that close ordered
// strictly after the write and flush that produced it).
type Future struct {
	err       error
	listeners []func(error)
	done      chan struct{}
	mu        sync.Mutex
	completed bool
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Completed reports whether the future has settled.
func (f *Future) Completed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

// Err returns the failure outcome, or nil. A nil result is only meaningful
// once Completed reports true; a pending future also returns nil.
func (f *Future) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Done returns a channel that is closed when the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future settles or ctx is done, returning the
// outcome or the context error respectively.
func (f *Future) Await(ctx context.Context) error {
	select {
	case <-f.done:
		return f.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddListener registers fn to run when the future settles. If the future
// has already settled, fn runs inline before AddListener returns.
func (f *Future) AddListener(fn func(err error)) {
	f.mu.Lock()
	if f.completed {
		err := f.err
		f.mu.Unlock()
		fn(err)
		return
	}
	f.listeners = append(f.listeners, fn)
	f.mu.Unlock()
}

// settle resolves the future, returning false if it was already settled.
// Listeners run inline, outside the lock, in registration order.
func (f *Future) settle(err error) bool {
	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()
		return false
	}
	f.completed = true
	f.err = err
	listeners := f.listeners
	f.listeners = nil
	close(f.done)
	f.mu.Unlock()
	for _, fn := range listeners {
		fn(err)
	}
	return true
}

// chain settles target with this future's outcome once it is known.
func (f *Future) chain(target *Future) {
	if target == nil || target == f {
		return
	}
	f.AddListener(func(err error) {
		target.settle(err)
	})
}
