// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netpipe

import (
	"github.com/joeycumines/logiface"
)

// Default watermark thresholds on pending outbound bytes.
const (
	// DefaultHighWaterMark is the default threshold above which a channel
	// becomes not writable.
	DefaultHighWaterMark uint64 = 64 * 1024
	// DefaultLowWaterMark is the default threshold at or below which a
	// not-writable channel becomes writable again.
	DefaultLowWaterMark uint64 = 32 * 1024
)

// channelOptions holds configuration options for Channel creation.
type channelOptions struct {
	logger         *logiface.Logger[logiface.Event]
	transport      Transport
	recorder       *EventRecorder
	highWaterMark  uint64
	lowWaterMark   uint64
	metricsEnabled bool
}

// Option configures a Channel instance.
type Option interface {
	applyChannel(*channelOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyChannelFunc func(*channelOptions) error
}

func (o *optionImpl) applyChannel(opts *channelOptions) error {
	return o.applyChannelFunc(opts)
}

// WithWatermarks sets the outbound buffer's watermark thresholds,
// requiring high >= low. Setting high == low collapses the hysteresis to
// a single threshold (still edge-triggered, never double-firing).
// Watermarks are fixed before traffic begins; invalid values reject the
// configuration synchronously.
func WithWatermarks(high, low uint64) Option {
	return &optionImpl{func(opts *channelOptions) error {
		if high < low {
			return &ConfigError{Message: "high watermark must be >= low watermark"}
		}
		opts.highWaterMark = high
		opts.lowWaterMark = low
		return nil
	}}
}

// WithTransport sets the transport collaborator asked to drain the
// outbound buffer when a flush reaches it. Without a transport, flushes
// traverse the pipeline but nothing drains.
func WithTransport(t Transport) Option {
	return &optionImpl{func(opts *channelOptions) error {
		opts.transport = t
		return nil
	}}
}

// WithLogger sets the channel's logger, replacing the package default
// (see [SetDefaultLogger]). A nil logger disables logging for the
// channel, including the unhandled-exception sink.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *channelOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithRecorder installs an [EventRecorder] adjacent to the transport side
// of the pipeline under the name "recorder", so it observes events in the
// order they take effect.
func WithRecorder(r *EventRecorder) Option {
	return &optionImpl{func(opts *channelOptions) error {
		opts.recorder = r
		return nil
	}}
}

// WithMetrics enables runtime metrics collection on the channel, exposed
// via [Channel.Metrics]. Disabled by default; the overhead is a handful
// of atomic increments per event.
func WithMetrics(enabled bool) Option {
	return &optionImpl{func(opts *channelOptions) error {
		opts.metricsEnabled = enabled
		return nil
	}}
}

// resolveOptions applies Option instances to channelOptions.
func resolveOptions(opts []Option) (*channelOptions, error) {
	cfg := &channelOptions{
		highWaterMark: DefaultHighWaterMark,
		lowWaterMark:  DefaultLowWaterMark,
		logger:        defaultLogger(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.applyChannel(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
