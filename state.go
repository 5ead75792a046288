package netpipe

import (
	"sync/atomic"
)

// ChannelState represents the lifecycle state of a [Channel].
//
// State Machine:
//
//	StateOpen (0) → StateClosing (1)   [close dispatch reaches the buffer]
//	StateClosing (1) → StateClosed (2) [pending writes failed, teardown done]
//	StateClosed (2) → (terminal)
//
// Transitions use CAS so that exactly one close dispatch performs teardown;
// later close attempts observe a non-open state and chain onto the existing
// terminal outcome instead.
type ChannelState uint32

const (
	// StateOpen indicates the channel accepts writes and flushes.
	StateOpen ChannelState = 0
	// StateClosing indicates teardown has begun but pending writes are not
	// yet resolved.
	StateClosing ChannelState = 1
	// StateClosed indicates teardown completed; all completion tokens have
	// been resolved and no further events traverse the pipeline.
	StateClosed ChannelState = 2
)

// String returns a human-readable representation of the state.
func (s ChannelState) String() string {
	switch s {
	case StateOpen:
		return "Open"
	case StateClosing:
		return "Closing"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// lifecycle is a lock-free channel state machine.
type lifecycle struct {
	v atomic.Uint32
}

// Load returns the current state atomically.
func (s *lifecycle) Load() ChannelState {
	return ChannelState(s.v.Load())
}

// Store atomically stores a new state. Reserved for irreversible
// transitions (StateClosed); reversible transitions must use TryTransition.
func (s *lifecycle) Store(state ChannelState) {
	s.v.Store(uint32(state))
}

// TryTransition attempts to atomically transition from one state to
// another, returning true on success.
func (s *lifecycle) TryTransition(from, to ChannelState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}

// IsOpen returns true while the channel accepts traffic.
func (s *lifecycle) IsOpen() bool {
	return s.Load() == StateOpen
}
