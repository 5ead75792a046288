// Package netpipe provides the event-dispatch and flow-control core of an
// asynchronous network channel abstraction: a per-connection pipeline of
// handlers through which outbound and inbound events travel, coupled to an
// outbound buffer that enforces backpressure via high/low watermarks.
//
// # Architecture
//
// A [Channel] owns one handler [Pipeline] and one outbound buffer.
// Outbound events (write, flush, close) enter at the tail of the pipeline
// and traverse toward the head, where they take effect on the buffer;
// inbound events (writability changed, exception caught) enter at the head
// and traverse toward the tail. Handlers intercept, transform, suppress,
// or forward events via their [HandlerContext] continuations, and may be
// added or removed at any time, including from within a dispatching
// handler.
//
// The buffer accounts pending bytes against configurable high/low
// watermarks: crossing above the high watermark turns the channel not
// writable, and draining back to the low watermark turns it writable
// again. Each crossing fires exactly one writability-changed event
// through the pipeline; the toggle is edge-triggered with hysteresis.
//
// # Execution Model
//
// A single logical executor owns each channel. Root operations from
// different goroutines serialize; a handler calling back into the
// channel's own operations (for example flushing from inside OnWrite)
// runs the nested dispatch inline, synchronously, to completion before
// control returns to the handler's frame. Total event order is therefore
// exactly the order dispatches take effect, even under recursive
// handler-triggered traffic.
//
// Operations never block: [Channel.Write], [Channel.Flush], and
// [Channel.Close] mutate in-memory state and return immediately, with
// outcomes delivered via [Future] completion tokens that resolve in
// strict FIFO order matching enqueue order. Actual I/O belongs to the
// [Transport] collaborator, which is asked to drain when a flush reaches
// the buffer and reports per-write completion via
// [Channel.CompleteOldest].
//
// # Failure Handling
//
// A handler signals failure by returning an error from an event method.
// That aborts forward propagation of the current event and instead routes
// an exception, first to the failing handler itself (if it implements
// [ExceptionHandler]) and then toward the tail; an exception nothing
// consumes is logged to the channel's sink, never silently dropped.
// Failures inside the pipeline never unwind past the Channel API as
// panics or raw errors: affected completion tokens resolve with a
// closed-channel outcome carrying the original cause as wrapped context
// (see [ClosedError]).
//
// # Usage
//
//	rec := netpipe.NewEventRecorder(netpipe.EventWrite | netpipe.EventFlush)
//	ch, err := netpipe.New(
//	    netpipe.WithWatermarks(1024, 512),
//	    netpipe.WithTransport(transport),
//	    netpipe.WithRecorder(rec),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	token := ch.WriteAndFlush(payload)
//	if err := token.Await(ctx); err != nil {
//	    // write failed, e.g. the channel closed before draining
//	}
//	_ = ch.Close().Await(ctx)
package netpipe
