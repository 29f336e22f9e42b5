// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package jscoap

import (
	"io"
	"os"
	"time"

	"github.com/joeycumines/logiface"
)

type runtimeOptions struct {
	logger *logiface.Logger[logiface.Event]
	rates  map[time.Duration]int
	output io.Writer
}

// Option configures a Runtime, see [New].
type Option interface {
	applyRuntime(*runtimeOptions)
}

type optionImpl struct {
	applyRuntimeFunc func(*runtimeOptions)
}

func (x *optionImpl) applyRuntime(opts *runtimeOptions) {
	x.applyRuntimeFunc(opts)
}

// WithLogger configures structured logging. A nil logger (the default)
// disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *runtimeOptions) {
		opts.logger = logger
	}}
}

// WithRateLimits applies rate limits per resource path, in the format
// accepted by catrate.NewLimiter. Requests over the limit are replied to
// with CodeTooManyRequests, without involving the script. Invalid rates
// cause New to fail. By default, requests are not rate limited.
func WithRateLimits(rates map[time.Duration]int) Option {
	return &optionImpl{func(opts *runtimeOptions) {
		opts.rates = rates
	}}
}

// WithOutput sets the writer used by the print global. Defaults to
// [os.Stdout].
func WithOutput(w io.Writer) Option {
	return &optionImpl{func(opts *runtimeOptions) {
		opts.output = w
	}}
}

func resolveRuntimeOptions(opts []Option) runtimeOptions {
	var cfg runtimeOptions
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyRuntime(&cfg)
	}
	if cfg.output == nil {
		cfg.output = os.Stdout
	}
	return cfg
}
