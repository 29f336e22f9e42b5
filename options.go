// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package eventqueue

import (
	"github.com/joeycumines/logiface"
)

// queueOptions holds configuration options for Queue initialization.
type queueOptions struct {
	logger *logiface.Logger[logiface.Event]
	timers Timers
}

// Option configures a Queue, see [Queue.Init].
type Option interface {
	applyQueue(*queueOptions)
}

// optionImpl implements Option.
type optionImpl struct {
	applyQueueFunc func(*queueOptions)
}

func (x *optionImpl) applyQueue(opts *queueOptions) {
	x.applyQueueFunc(opts)
}

// WithLogger configures structured logging for the queue, and any [Timeout]
// targeting it. A nil logger (the default) disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *queueOptions) {
		opts.logger = logger
	}}
}

// WithTimers sets the timer facility used by any [Timeout] targeting the
// queue. Defaults to [RealTimers]. A nil value restores the default.
func WithTimers(timers Timers) Option {
	return &optionImpl{func(opts *queueOptions) {
		opts.timers = timers
	}}
}

// resolveQueueOptions applies Option instances to queueOptions.
func resolveQueueOptions(opts []Option) queueOptions {
	var cfg queueOptions
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyQueue(&cfg)
	}
	if cfg.timers == nil {
		cfg.timers = RealTimers{}
	}
	return cfg
}
