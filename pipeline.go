package netpipe

import (
	"sync"

	"go.uber.org/multierr"
)

// Capability masks, computed once per handler at registration from the
// interfaces it implements. Traversal still resolves the next node lazily
// at call time; only the capability set is cached.
const (
	maskOutbound = 1 << iota // OutboundHandler: write, flush, close
	maskInbound              // InboundHandler: writability changed
	maskException            // ExceptionHandler
)

// Pipeline is the ordered, mutable chain of handlers owned by a [Channel].
//
// Outbound events (write, flush, close) traverse tail-to-head; inbound
// events (writability changed, exception caught) traverse head-to-tail.
// The chain may be mutated at any time, including from within a handler
// that is currently dispatching: traversal resolves each "next node" from
// the live links at call time, so an insertion takes effect for subsequent
// events and a removed node's in-flight continuations still reach its
// former neighbours.
type Pipeline struct {
	channel *Channel
	head    *HandlerContext
	tail    *HandlerContext
	names   map[string]*HandlerContext
	mu      sync.Mutex
}

func newPipeline(ch *Channel) *Pipeline {
	p := &Pipeline{
		channel: ch,
		names:   make(map[string]*HandlerContext),
	}
	p.head = &HandlerContext{
		name:     "head",
		handler:  &headHandler{ch: ch},
		flags:    maskOutbound,
		pipeline: p,
	}
	p.tail = &HandlerContext{
		name:     "tail",
		handler:  &tailHandler{ch: ch},
		flags:    maskInbound | maskException,
		pipeline: p,
	}
	p.head.next = p.tail
	p.tail.prev = p.head
	return p
}

// Channel returns the channel this pipeline belongs to.
func (p *Pipeline) Channel() *Channel {
	return p.channel
}

// AddFirst inserts a handler directly after the head (closest to the
// transport side). The handler must implement at least one of
// [OutboundHandler], [InboundHandler], or [ExceptionHandler], and the name
// must be unique within the pipeline.
func (p *Pipeline) AddFirst(name string, handler any) error {
	ctx, err := p.newContext(name, handler)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.register(name, ctx); err != nil {
		return err
	}
	ctx.prev = p.head
	ctx.next = p.head.next
	p.head.next.prev = ctx
	p.head.next = ctx
	return nil
}

// AddLast appends a handler directly before the tail (closest to the
// caller side). Constraints match [Pipeline.AddFirst].
func (p *Pipeline) AddLast(name string, handler any) error {
	ctx, err := p.newContext(name, handler)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.register(name, ctx); err != nil {
		return err
	}
	ctx.next = p.tail
	ctx.prev = p.tail.prev
	p.tail.prev.next = ctx
	p.tail.prev = ctx
	return nil
}

// Remove unlinks the named handler. The removed context keeps its own
// links, so a dispatch currently inside that handler forwards correctly
// to its former neighbours.
func (p *Pipeline) Remove(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ctx, ok := p.names[name]
	if !ok {
		return ErrHandlerNotFound
	}
	delete(p.names, name)
	ctx.prev.next = ctx.next
	ctx.next.prev = ctx.prev
	return nil
}

// Names returns the registered handler names in head-to-tail order,
// excluding the sentinels.
func (p *Pipeline) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var names []string
	for ctx := p.head.next; ctx != p.tail; ctx = ctx.next {
		names = append(names, ctx.name)
	}
	return names
}

func (p *Pipeline) newContext(name string, handler any) (*HandlerContext, error) {
	if name == "" {
		return nil, &ConfigError{Message: "handler name must not be empty"}
	}
	flags := capabilityFlags(handler)
	if flags == 0 {
		return nil, ErrInvalidHandler
	}
	return &HandlerContext{
		name:     name,
		handler:  handler,
		flags:    flags,
		pipeline: p,
	}, nil
}

// register must be called with p.mu held.
func (p *Pipeline) register(name string, ctx *HandlerContext) error {
	if _, ok := p.names[name]; ok {
		return ErrDuplicateHandlerName
	}
	p.names[name] = ctx
	return nil
}

func capabilityFlags(handler any) uint32 {
	var flags uint32
	if _, ok := handler.(OutboundHandler); ok {
		flags |= maskOutbound
	}
	if _, ok := handler.(InboundHandler); ok {
		flags |= maskInbound
	}
	if _, ok := handler.(ExceptionHandler); ok {
		flags |= maskException
	}
	return flags
}

// Entry points: outbound events begin at the tail, inbound events at the
// head. The sentinel itself is skipped by the continuation helpers.

func (p *Pipeline) write(payload []byte, token *Future) {
	p.tail.Write(payload, token)
}

func (p *Pipeline) flush() {
	p.tail.Flush()
}

func (p *Pipeline) close(token *Future) {
	p.tail.Close(token)
}

func (p *Pipeline) fireWritabilityChanged() {
	p.head.FireWritabilityChanged()
}

func (p *Pipeline) fireExceptionCaught(err error) {
	p.head.FireExceptionCaught(err)
}

// HandlerContext binds a handler to its position in a pipeline and carries
// the continuations a handler uses to forward events. Outbound
// continuations ([HandlerContext.Write], [HandlerContext.Flush],
// [HandlerContext.Close]) proceed toward the head; inbound continuations
// ([HandlerContext.FireWritabilityChanged],
// [HandlerContext.FireExceptionCaught]) proceed toward the tail.
type HandlerContext struct {
	handler  any
	pipeline *Pipeline
	prev     *HandlerContext
	next     *HandlerContext
	name     string
	flags    uint32
}

// Name returns the name the handler was registered under.
func (c *HandlerContext) Name() string {
	return c.name
}

// Channel returns the owning channel, for handlers that need to begin a
// new, independent dispatch (e.g. calling Flush from inside OnWrite).
func (c *HandlerContext) Channel() *Channel {
	return c.pipeline.channel
}

// Write forwards a write event to the next outbound handler toward the
// head.
func (c *HandlerContext) Write(payload []byte, token *Future) {
	c.findOutbound().invokeWrite(payload, token)
}

// Flush forwards a flush event to the next outbound handler toward the
// head.
func (c *HandlerContext) Flush() {
	c.findOutbound().invokeFlush()
}

// Close forwards a close event to the next outbound handler toward the
// head. A nil token is replaced with the channel's close future, which is
// also what Close returns for convenience.
func (c *HandlerContext) Close(token *Future) *Future {
	if token == nil {
		token = c.pipeline.channel.closeFuture
	}
	c.findOutbound().invokeClose(token)
	return token
}

// FireWritabilityChanged forwards a writability-changed event to the next
// inbound handler toward the tail.
func (c *HandlerContext) FireWritabilityChanged() {
	c.findInbound(maskInbound).invokeWritabilityChanged()
}

// FireExceptionCaught forwards a failure to the next exception-capable
// handler toward the tail. The tail reports unconsumed failures to the
// default sink.
func (c *HandlerContext) FireExceptionCaught(err error) {
	c.findInbound(maskException).invokeExceptionCaught(err)
}

// findOutbound resolves the next outbound-capable node toward the head,
// from the live links at call time. Link reads take the pipeline mutex so
// they synchronize with concurrent mutation; the lock is released before
// the resolved handler is invoked. The head sentinel terminates the scan.
func (c *HandlerContext) findOutbound() *HandlerContext {
	p := c.pipeline
	p.mu.Lock()
	defer p.mu.Unlock()
	for ctx := c.prev; ; ctx = ctx.prev {
		if ctx.flags&maskOutbound != 0 {
			return ctx
		}
	}
}

// findInbound resolves the next node toward the tail matching mask, under
// the same locking discipline as findOutbound. The tail sentinel
// terminates the scan.
func (c *HandlerContext) findInbound(mask uint32) *HandlerContext {
	p := c.pipeline
	p.mu.Lock()
	defer p.mu.Unlock()
	for ctx := c.next; ; ctx = ctx.next {
		if ctx.flags&mask != 0 {
			return ctx
		}
	}
}

func (c *HandlerContext) invokeWrite(payload []byte, token *Future) {
	if err := c.handler.(OutboundHandler).OnWrite(c, payload, token); err != nil {
		c.notifyHandlerError("write", err)
	}
}

func (c *HandlerContext) invokeFlush() {
	if err := c.handler.(OutboundHandler).OnFlush(c); err != nil {
		c.notifyHandlerError("flush", err)
	}
}

func (c *HandlerContext) invokeClose(token *Future) {
	if err := c.handler.(OutboundHandler).OnClose(c, token); err != nil {
		c.notifyHandlerError("close", err)
	}
}

func (c *HandlerContext) invokeWritabilityChanged() {
	if err := c.handler.(InboundHandler).OnWritabilityChanged(c); err != nil {
		c.notifyHandlerError("writabilityChanged", err)
	}
}

func (c *HandlerContext) invokeExceptionCaught(err error) {
	if next := c.handler.(ExceptionHandler).OnExceptionCaught(c, err); next != nil {
		// A failing exception handler would otherwise loop; report both
		// errors to the sink instead.
		c.pipeline.channel.logUnhandled(multierr.Append(
			err,
			&PipelineError{Handler: c.name, Op: "exceptionCaught", Cause: next},
		))
	}
}

// notifyHandlerError aborts forward propagation of the current event and
// routes the failure as an exception: first to the failing handler itself
// if it is exception-capable, otherwise onward toward the tail.
func (c *HandlerContext) notifyHandlerError(op string, cause error) {
	err := &PipelineError{Handler: c.name, Op: op, Cause: cause}
	c.pipeline.channel.recordFailure(err)
	if c.flags&maskException != 0 {
		c.invokeExceptionCaught(err)
	} else {
		c.FireExceptionCaught(err)
	}
}

// headHandler is the transport-side sentinel: terminal for outbound
// events, applying them to the channel's outbound buffer.
type headHandler struct {
	ch *Channel
}

var _ OutboundHandler = (*headHandler)(nil)

func (h *headHandler) OnWrite(_ *HandlerContext, payload []byte, token *Future) error {
	h.ch.unsafeWrite(payload, token)
	return nil
}

func (h *headHandler) OnFlush(*HandlerContext) error {
	h.ch.unsafeFlush()
	return nil
}

func (h *headHandler) OnClose(_ *HandlerContext, token *Future) error {
	h.ch.unsafeClose(token)
	return nil
}

// tailHandler is the caller-side sentinel: terminal for inbound events.
// Unconsumed exceptions are reported to the default sink here.
type tailHandler struct {
	ch *Channel
}

var (
	_ InboundHandler   = (*tailHandler)(nil)
	_ ExceptionHandler = (*tailHandler)(nil)
)

func (h *tailHandler) OnWritabilityChanged(*HandlerContext) error {
	return nil
}

func (h *tailHandler) OnExceptionCaught(_ *HandlerContext, err error) error {
	h.ch.logUnhandled(err)
	return nil
}
