package netpipe

import (
	"fmt"
	"strings"
	"sync"
)

// EventKind identifies one kind of observable pipeline event. Kinds
// combine as a bitmask for interest filtering.
type EventKind uint32

const (
	// EventWrite is a write event reaching the recorder's position.
	EventWrite EventKind = 1 << iota
	// EventFlush is a flush event reaching the recorder's position.
	EventFlush
	// EventClose is a close event reaching the recorder's position.
	EventClose
	// EventWritability is a writability-changed notification.
	EventWritability
	// EventException is a pipeline failure passing the recorder.
	EventException

	// EventAll matches every event kind.
	EventAll = EventWrite | EventFlush | EventClose | EventWritability | EventException
)

// String returns the event kind's wire-log name.
func (k EventKind) String() string {
	switch k {
	case EventWrite:
		return "WRITE"
	case EventFlush:
		return "FLUSH"
	case EventClose:
		return "CLOSE"
	case EventWritability:
		return "WRITABILITY"
	case EventException:
		return "EXCEPTION"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint32(k))
	}
}

// Record is one observed event occurrence.
type Record struct {
	// Err is the failure carried by an EventException record.
	Err error
	// Kind identifies the event.
	Kind EventKind
	// Writable is the channel's writability at the time of an
	// EventWritability record.
	Writable bool
}

// String renders the record in log form, e.g. "WRITE" or
// "WRITABILITY: writable=false".
func (r Record) String() string {
	switch r.Kind {
	case EventWritability:
		return fmt.Sprintf("WRITABILITY: writable=%t", r.Writable)
	case EventException:
		return fmt.Sprintf("EXCEPTION: %v", r.Err)
	default:
		return r.Kind.String()
	}
}

// EventRecorder observes a filtered subset of event kinds, one record per
// occurrence, in true dispatch order. It is itself a pipeline handler
// (install via [WithRecorder], which places it adjacent to the transport
// side, or add it anywhere with the pipeline mutation API) that forwards
// every event unchanged after recording it.
type EventRecorder struct {
	records  []Record
	mu       sync.Mutex
	interest EventKind
}

var (
	_ OutboundHandler  = (*EventRecorder)(nil)
	_ InboundHandler   = (*EventRecorder)(nil)
	_ ExceptionHandler = (*EventRecorder)(nil)
)

// NewEventRecorder creates a recorder interested in the union of kinds,
// or in every kind when none are given.
func NewEventRecorder(kinds ...EventKind) *EventRecorder {
	r := &EventRecorder{interest: EventAll}
	if len(kinds) > 0 {
		r.interest = 0
		for _, k := range kinds {
			r.interest |= k
		}
	}
	return r
}

// SetInterest replaces the recorder's event-kind filter.
func (r *EventRecorder) SetInterest(kinds EventKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interest = kinds
}

// Records returns a copy of the recorded events in dispatch order.
func (r *EventRecorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Clear discards all recorded events.
func (r *EventRecorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}

// String renders the recorded events one per line, each line terminated
// with a newline.
func (r *EventRecorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sb strings.Builder
	for _, rec := range r.records {
		sb.WriteString(rec.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (r *EventRecorder) record(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.interest&rec.Kind != 0 {
		r.records = append(r.records, rec)
	}
}

// OnWrite implements [OutboundHandler].
func (r *EventRecorder) OnWrite(ctx *HandlerContext, payload []byte, token *Future) error {
	r.record(Record{Kind: EventWrite})
	ctx.Write(payload, token)
	return nil
}

// OnFlush implements [OutboundHandler].
func (r *EventRecorder) OnFlush(ctx *HandlerContext) error {
	r.record(Record{Kind: EventFlush})
	ctx.Flush()
	return nil
}

// OnClose implements [OutboundHandler].
func (r *EventRecorder) OnClose(ctx *HandlerContext, token *Future) error {
	r.record(Record{Kind: EventClose})
	ctx.Close(token)
	return nil
}

// OnWritabilityChanged implements [InboundHandler].
func (r *EventRecorder) OnWritabilityChanged(ctx *HandlerContext) error {
	r.record(Record{Kind: EventWritability, Writable: ctx.Channel().IsWritable()})
	ctx.FireWritabilityChanged()
	return nil
}

// OnExceptionCaught implements [ExceptionHandler].
func (r *EventRecorder) OnExceptionCaught(ctx *HandlerContext, err error) error {
	r.record(Record{Kind: EventException, Err: err})
	ctx.FireExceptionCaught(err)
	return nil
}
