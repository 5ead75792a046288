package netpipe

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrClosed is the terminal outcome class for operations that cannot
	// complete because the channel is (or became) closed. Use [errors.Is]
	// against this sentinel; the concrete value carried by a completion
	// token is typically a [ClosedError] wrapping the proximate cause.
	ErrClosed = errors.New("netpipe: channel is closed")

	// ErrNoPendingWrites is returned by [Channel.CompleteOldest] when the
	// outbound buffer holds no uncompleted write.
	ErrNoPendingWrites = errors.New("netpipe: no pending writes to complete")

	// ErrHandlerNotFound is returned when removing a handler name that is
	// not present in the pipeline.
	ErrHandlerNotFound = errors.New("netpipe: handler not found")

	// ErrDuplicateHandlerName is returned when adding a handler under a
	// name that is already registered.
	ErrDuplicateHandlerName = errors.New("netpipe: duplicate handler name")

	// ErrInvalidHandler is returned when a value implementing none of
	// [OutboundHandler], [InboundHandler], or [ExceptionHandler] is added
	// to a pipeline.
	ErrInvalidHandler = errors.New("netpipe: handler implements no capability interface")
)

// ClosedError resolves completion tokens whose underlying operation cannot
// complete because the channel closed. When closure was triggered by a
// failure inside the pipeline, Cause carries that failure; the surfaced
// outcome class remains "closed channel" regardless, with the original
// cause reachable via [errors.Unwrap] / [errors.Is].
type ClosedError struct {
	Cause error
}

// Error implements the error interface.
func (e *ClosedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", ErrClosed.Error(), e.Cause)
	}
	return ErrClosed.Error()
}

// Unwrap returns the proximate cause of closure, if any.
func (e *ClosedError) Unwrap() error {
	return e.Cause
}

// Is matches [ErrClosed], so callers need not distinguish the sentinel
// from the wrapping struct.
func (e *ClosedError) Is(target error) bool {
	return target == ErrClosed
}

// PipelineError records a failure signalled by a handler's event method,
// identifying the handler and the operation that failed.
type PipelineError struct {
	Cause   error
	Handler string
	Op      string
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	return fmt.Sprintf("netpipe: handler %q failed in %s: %v", e.Handler, e.Op, e.Cause)
}

// Unwrap returns the handler's error for use with [errors.Is] and [errors.As].
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// ConfigError is returned synchronously from [New] when channel
// configuration is invalid, e.g. a low watermark above the high watermark.
// Invalid configuration is never deferred to dispatch time.
type ConfigError struct {
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Message == "" {
		return "netpipe: invalid configuration"
	}
	return "netpipe: " + e.Message
}
