package netpipe

// OutboundHandler intercepts events travelling toward the transport:
// write, flush, and close. Each method either forwards the event via the
// matching [HandlerContext] continuation, suppresses it, or signals a
// failure by returning a non-nil error (which aborts forward propagation
// of the current event and routes an exception instead).
type OutboundHandler interface {
	// OnWrite observes a payload on its way to the outbound buffer, along
	// with the completion token that will resolve once the write is
	// drained (or the channel closes).
	OnWrite(ctx *HandlerContext, payload []byte, token *Future) error

	// OnFlush observes a request to drain pending writes now. Flush moves
	// no bytes by itself; only the transport collaborator does.
	OnFlush(ctx *HandlerContext) error

	// OnClose observes channel teardown. token resolves when teardown
	// completes.
	OnClose(ctx *HandlerContext, token *Future) error
}

// InboundHandler intercepts events travelling away from the transport.
type InboundHandler interface {
	// OnWritabilityChanged observes a writability threshold crossing.
	// The new value is available via ctx.Channel().IsWritable().
	OnWritabilityChanged(ctx *HandlerContext) error
}

// ExceptionHandler consumes or forwards failures signalled by handler
// event methods. A failure is first delivered to the failing handler
// itself if it implements this interface, then travels toward the tail;
// an exception reaching the end of the pipeline is reported to the
// default sink, never silently dropped.
type ExceptionHandler interface {
	OnExceptionCaught(ctx *HandlerContext, err error) error
}

// OutboundAdapter is an [OutboundHandler] that forwards every event
// unchanged. Embed it and override the methods of interest.
type OutboundAdapter struct{}

var _ OutboundHandler = OutboundAdapter{}

func (OutboundAdapter) OnWrite(ctx *HandlerContext, payload []byte, token *Future) error {
	ctx.Write(payload, token)
	return nil
}

func (OutboundAdapter) OnFlush(ctx *HandlerContext) error {
	ctx.Flush()
	return nil
}

func (OutboundAdapter) OnClose(ctx *HandlerContext, token *Future) error {
	ctx.Close(token)
	return nil
}

// InboundAdapter is an [InboundHandler] that forwards every event
// unchanged. Embed it and override the methods of interest.
type InboundAdapter struct{}

var _ InboundHandler = InboundAdapter{}

func (InboundAdapter) OnWritabilityChanged(ctx *HandlerContext) error {
	ctx.FireWritabilityChanged()
	return nil
}
