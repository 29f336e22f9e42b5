// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build !linux

package eventqueue

import (
	"fmt"
	"runtime"
)

// EventFD is only available on Linux, see [Thread] for a portable Owner.
type EventFD struct{}

var (
	// compile time assertions

	_ Owner = (*EventFD)(nil)
)

// NewEventFD always fails on this platform, with an error that matches
// [ErrUnsupported].
func NewEventFD() (*EventFD, error) {
	return nil, fmt.Errorf(`eventqueue: eventfd unavailable on %s: %w`, runtime.GOOS, ErrUnsupported)
}

func (*EventFD) Wait() {}

func (*EventFD) Wake() {}

func (*EventFD) Close() error { return nil }
