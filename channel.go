package netpipe

import (
	"sync/atomic"

	"github.com/joeycumines/logiface"
	"go.uber.org/multierr"
)

// channelIDCounter provides unique channel IDs for logging.
var channelIDCounter atomic.Uint64

// Transport is the collaborator that moves queued bytes. Drain is invoked
// when a flush event reaches the transport side of the pipeline with
// writes pending; the transport reads each oldest payload via
// [Channel.PeekOldest] and must call [Channel.CompleteOldest] exactly
// once per drained write, in FIFO order. From the channel's perspective a
// drain request is fire-and-forget.
type Transport interface {
	Drain(c *Channel)
}

// TransportFunc adapts a function to the [Transport] interface.
type TransportFunc func(c *Channel)

// Drain implements [Transport].
func (f TransportFunc) Drain(c *Channel) { f(c) }

// Channel is one connection's event-dispatch and flow-control core: a
// handler [Pipeline] through which write/flush/close/writability events
// travel, and an outbound buffer whose watermark state machine decides
// writability.
//
// Operations never block the calling context; outcomes are delivered via
// [Future] completion tokens, which resolve in strict FIFO order matching
// enqueue order. A single logical executor owns the channel: root
// dispatches from different goroutines serialize, while a handler calling
// back into the channel's own operations runs the nested dispatch inline,
// synchronously, before control returns to its own frame.
type Channel struct {
	_ [0]func() // prevent copying

	pipeline    *Pipeline
	out         *outboundBuffer
	exec        executor
	state       lifecycle
	transport   Transport
	logger      *logiface.Logger[logiface.Event]
	metrics     *Metrics
	closeFuture *Future

	// failure accumulates pipeline failures; executor-owned.
	failure error
	// closeInitiated dedupes close dispatches; executor-owned.
	closeInitiated bool

	id uint64
}

// New creates a channel. Configuration errors (e.g. watermark ordering)
// are rejected synchronously, never deferred to dispatch time.
func New(opts ...Option) (*Channel, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	c := &Channel{
		transport:   cfg.transport,
		logger:      cfg.logger,
		id:          channelIDCounter.Add(1),
		closeFuture: newFuture(),
	}
	if cfg.metricsEnabled {
		c.metrics = &Metrics{}
	}
	c.exec.metrics = c.metrics
	c.out = newOutboundBuffer(c, cfg.highWaterMark, cfg.lowWaterMark)
	c.pipeline = newPipeline(c)
	if cfg.recorder != nil {
		if err := c.pipeline.AddFirst("recorder", cfg.recorder); err != nil {
			return nil, err
		}
	}
	c.logger.Debug().
		Uint64("channel", c.id).
		Uint64("highWaterMark", cfg.highWaterMark).
		Uint64("lowWaterMark", cfg.lowWaterMark).
		Log("channel created")
	return c, nil
}

// ID returns the channel's process-unique identifier.
func (c *Channel) ID() uint64 {
	return c.id
}

// Pipeline returns the channel's handler pipeline.
func (c *Channel) Pipeline() *Pipeline {
	return c.pipeline
}

// Metrics returns the channel's metrics, or nil unless enabled via
// [WithMetrics].
func (c *Channel) Metrics() *Metrics {
	return c.metrics
}

// State returns the channel's current lifecycle state.
func (c *Channel) State() ChannelState {
	return c.state.Load()
}

// IsWritable reports whether producers should keep enqueueing writes. It
// is a pure read of the outbound buffer's watermark state and never
// blocks. A closed channel is never writable.
func (c *Channel) IsWritable() bool {
	return c.state.IsOpen() && c.out.writable.Load()
}

// PendingBytes returns the byte total of writes not yet drained.
func (c *Channel) PendingBytes() uint64 {
	return c.out.pendingBytes.Load()
}

// Write enqueues a payload via outbound traversal of the pipeline and
// returns its completion token. Write implies no transport attempt; only
// a flush drains pending writes. A write on a closed channel resolves its
// token immediately with a closed-channel failure, without traversing the
// pipeline.
func (c *Channel) Write(payload []byte) *Future {
	token := newFuture()
	c.exec.Do(func() {
		c.write(payload, token)
	})
	return token
}

// Flush dispatches a flush event, asking the transport collaborator to
// attempt a drain now. It returns immediately; on a closed channel it is
// a no-op.
func (c *Channel) Flush() {
	c.exec.Do(func() {
		c.flush()
	})
}

// WriteAndFlush is write immediately followed by flush, as two distinct
// observable events, never fused.
func (c *Channel) WriteAndFlush(payload []byte) *Future {
	token := newFuture()
	c.exec.Do(func() {
		c.write(payload, token)
		c.flush()
	})
	return token
}

// Close tears the channel down. Every outstanding completion token
// resolves (with a closed-channel failure if not already settled), and
// the returned future — the same value as [Channel.CloseFuture] — settles
// once teardown completes. Close is idempotent: subsequent calls resolve
// against the same terminal outcome with no duplicate close side effects,
// and it is safe to call from within any handler method or token listener.
func (c *Channel) Close() *Future {
	c.exec.Do(func() {
		if c.closeInitiated {
			return
		}
		c.closeInitiated = true
		c.pipeline.close(c.closeFuture)
	})
	return c.closeFuture
}

// CloseFuture returns the token that settles when teardown completes,
// independent of any one Close call.
func (c *Channel) CloseFuture() *Future {
	return c.closeFuture
}

// PeekOldest returns the payload of the oldest pending write without
// completing it, so the transport can move the bytes before acknowledging
// via [Channel.CompleteOldest]. ok is false when nothing is pending.
func (c *Channel) PeekOldest() (payload []byte, ok bool) {
	c.exec.Do(func() {
		if e := c.out.head; e != nil {
			payload, ok = e.payload, true
		}
	})
	return
}

// CompleteOldest is the transport collaborator's completion callback: it
// resolves the oldest pending write with result (nil for success),
// decrements byte accounting, and fires a writability-changed event if the
// low watermark was reached. Returns [ErrNoPendingWrites] if nothing is
// pending.
func (c *Channel) CompleteOldest(result error) error {
	var err error
	c.exec.Do(func() {
		err = c.out.completeOldest(result)
	})
	return err
}

// --- executor-owned internals ---

func (c *Channel) write(payload []byte, token *Future) {
	if !c.state.IsOpen() {
		token.settle(&ClosedError{Cause: c.failure})
		return
	}
	c.metrics.recordWrite()
	c.pipeline.write(payload, token)
}

func (c *Channel) flush() {
	if !c.state.IsOpen() {
		return
	}
	c.metrics.recordFlush()
	c.pipeline.flush()
}

// unsafeWrite is the head sentinel's terminal write: enqueue into the
// outbound buffer. A close that raced ahead of the traversal fails the
// token rather than enqueueing into a dead buffer.
func (c *Channel) unsafeWrite(payload []byte, token *Future) {
	if !c.state.IsOpen() {
		token.settle(&ClosedError{Cause: c.failure})
		return
	}
	c.out.enqueue(payload, token)
}

// unsafeFlush is the head sentinel's terminal flush: request a drain if
// anything is pending. Flush moves no bytes itself, and a flush with
// nothing pending is a no-op.
func (c *Channel) unsafeFlush() {
	if !c.state.IsOpen() || c.out.isEmpty() || c.transport == nil {
		return
	}
	c.transport.Drain(c)
}

// unsafeClose is the head sentinel's terminal close: exactly one caller
// performs teardown; the rest chain onto the existing terminal outcome.
func (c *Channel) unsafeClose(token *Future) {
	c.closeInitiated = true
	if !c.state.TryTransition(StateOpen, StateClosing) {
		c.closeFuture.chain(token)
		return
	}
	c.metrics.recordClose()
	c.out.failAll(&ClosedError{Cause: c.failure})
	c.state.Store(StateClosed)
	c.logger.Debug().
		Uint64("channel", c.id).
		Log("channel closed")
	if token != c.closeFuture {
		token.settle(nil)
	}
	c.closeFuture.settle(nil)
}

// fireWritabilityChanged propagates a watermark crossing inbound through
// the pipeline.
func (c *Channel) fireWritabilityChanged() {
	c.metrics.recordWritabilityChange()
	c.logger.Trace().
		Uint64("channel", c.id).
		Bool("writable", c.out.writable.Load()).
		Uint64("pendingBytes", c.out.pendingBytes.Load()).
		Log("writability changed")
	c.pipeline.fireWritabilityChanged()
}

// recordFailure accumulates a pipeline failure so that closure can
// surface it as context on the closed-channel outcome.
func (c *Channel) recordFailure(err error) {
	c.metrics.recordException()
	c.failure = multierr.Append(c.failure, err)
}

// logUnhandled reports a failure nothing consumed to the default sink.
// Failures are never silently dropped.
func (c *Channel) logUnhandled(err error) {
	c.logger.Warning().
		Uint64("channel", c.id).
		Err(err).
		Log("unhandled pipeline exception")
}
