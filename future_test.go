package netpipe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFutureSettleOnce(t *testing.T) {
	f := newFuture()
	require.False(t, f.Completed())
	require.NoError(t, f.Err())

	require.True(t, f.settle(errIntentional))
	require.True(t, f.Completed())
	require.ErrorIs(t, f.Err(), errIntentional)

	// A second settle is ignored and the first outcome sticks.
	require.False(t, f.settle(nil))
	require.ErrorIs(t, f.Err(), errIntentional)
}

func TestFutureListenerBeforeSettlement(t *testing.T) {
	f := newFuture()
	var order []int
	f.AddListener(func(err error) {
		assert.ErrorIs(t, err, errIntentional)
		order = append(order, 1)
	})
	f.AddListener(func(error) { order = append(order, 2) })

	require.Empty(t, order)
	f.settle(errIntentional)
	require.Equal(t, []int{1, 2}, order, "listeners run inline in registration order")
}

func TestFutureListenerAfterSettlement(t *testing.T) {
	f := newFuture()
	f.settle(nil)

	called := false
	f.AddListener(func(err error) {
		assert.NoError(t, err)
		called = true
	})
	require.True(t, called, "late listener must run inline before AddListener returns")
}

func TestFutureDoneAndAwait(t *testing.T) {
	f := newFuture()
	select {
	case <-f.Done():
		t.Fatal("done channel closed before settlement")
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, f.Await(ctx), context.DeadlineExceeded)

	f.settle(errIntentional)
	<-f.Done()
	require.ErrorIs(t, f.Await(context.Background()), errIntentional)
}

func TestFutureAwaitCrossGoroutine(t *testing.T) {
	f := newFuture()
	go func() {
		time.Sleep(10 * time.Millisecond)
		f.settle(nil)
	}()
	require.NoError(t, f.Await(context.Background()))
}

func TestFutureChain(t *testing.T) {
	src := newFuture()
	dst := newFuture()
	src.chain(dst)
	require.False(t, dst.Completed())

	src.settle(errIntentional)
	require.True(t, dst.Completed())
	require.ErrorIs(t, dst.Err(), errIntentional)

	// Chaining to itself or nil must be inert.
	src.chain(src)
	src.chain(nil)
}

func TestFutureChainAlreadySettled(t *testing.T) {
	src := newFuture()
	src.settle(nil)

	dst := newFuture()
	src.chain(dst)
	require.True(t, dst.Completed())
	require.NoError(t, dst.Err())
}
