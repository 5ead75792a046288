package netpipe

import (
	"sync/atomic"
)

// pendingWrite is one queued outbound operation. Entries form an intrusive
// FIFO list; a write completes only after every write queued before it.
type pendingWrite struct {
	payload []byte
	token   *Future
	next    *pendingWrite
	size    uint64
}

// outboundBuffer queues pending writes with byte-size accounting and
// drives the writability watermark state machine.
//
// The state machine is edge-triggered with hysteresis: crossing above the
// high watermark flips the channel to not-writable and fires exactly one
// writability-changed event; only crossing back down to (or below) the low
// watermark flips it back, again firing exactly once. No event fires while
// pendingBytes remains on one side of the relevant threshold, and setting
// high == low degenerates to a single threshold without double-firing.
//
// Mutation happens exclusively on the channel's executor; pendingBytes and
// writable are atomics only so that IsWritable / PendingBytes are pure,
// non-blocking reads from any goroutine.
type outboundBuffer struct {
	ch           *Channel
	head         *pendingWrite
	tail         *pendingWrite
	pendingBytes atomic.Uint64
	writable     atomic.Bool
	high         uint64
	low          uint64
}

func newOutboundBuffer(ch *Channel, high, low uint64) *outboundBuffer {
	b := &outboundBuffer{ch: ch, high: high, low: low}
	b.writable.Store(true)
	return b
}

func (b *outboundBuffer) isEmpty() bool {
	return b.head == nil
}

// enqueue appends a write and accounts its bytes, toggling writability if
// the high watermark was crossed.
func (b *outboundBuffer) enqueue(payload []byte, token *Future) {
	e := &pendingWrite{payload: payload, token: token, size: uint64(len(payload))}
	if b.tail == nil {
		b.head = e
	} else {
		b.tail.next = e
	}
	b.tail = e
	n := b.pendingBytes.Add(e.size)
	b.ch.metrics.recordBytesEnqueued(e.size)
	if b.writable.Load() && n > b.high {
		b.writable.Store(false)
		b.ch.fireWritabilityChanged()
	}
}

// completeOldest pops the oldest entry, resolves its token with result,
// and toggles writability if the low watermark was reached. The token
// settles before the watermark check so its listeners observe the
// completion strictly before any writability-changed(true) event it
// unblocks.
func (b *outboundBuffer) completeOldest(result error) error {
	e := b.head
	if e == nil {
		return ErrNoPendingWrites
	}
	b.head = e.next
	if b.head == nil {
		b.tail = nil
	}
	e.next = nil
	b.pendingBytes.Add(^(e.size - 1))
	b.ch.metrics.recordBytesCompleted(e.size)
	e.token.settle(result)
	// Listeners may have written more, or closed the channel; re-read.
	if b.ch.state.IsOpen() && !b.writable.Load() && b.pendingBytes.Load() <= b.low {
		b.writable.Store(true)
		b.ch.fireWritabilityChanged()
	}
	return nil
}

// failAll resolves every remaining token with cause, in FIFO order, with
// no writability events: the channel is tearing down. No token is left
// pending.
func (b *outboundBuffer) failAll(cause error) {
	for e := b.head; e != nil; {
		next := e.next
		e.next = nil
		b.pendingBytes.Add(^(e.size - 1))
		e.token.settle(cause)
		e = next
	}
	b.head = nil
	b.tail = nil
	b.writable.Store(false)
}
