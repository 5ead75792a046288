package netpipe

import (
	"errors"
	"testing"
)

// drainTransport drains the whole outbound buffer synchronously on each
// Drain request, completing writes in FIFO order.
type drainTransport struct {
	drains int
}

func (d *drainTransport) Drain(c *Channel) {
	d.drains++
	for {
		if err := c.CompleteOldest(nil); err != nil {
			if !errors.Is(err, ErrNoPendingWrites) {
				panic(err)
			}
			return
		}
	}
}

// newTestChannel builds a channel wired to a draining transport, with
// logging disabled so tests stay quiet.
func newTestChannel(t *testing.T, rec *EventRecorder, opts ...Option) (*Channel, *drainTransport) {
	t.Helper()
	tr := &drainTransport{}
	base := []Option{WithTransport(tr), WithLogger(nil)}
	if rec != nil {
		base = append(base, WithRecorder(rec))
	}
	ch, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return ch, tr
}

func testPayload(n int) []byte {
	return make([]byte, n)
}
