// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package eventqueue

import (
	"time"
)

type (
	// Timers is the one-shot timer facility used by [Timeout].
	//
	// AfterFunc must arrange for f to be called, on some other goroutine,
	// once d has elapsed. It must not call f synchronously.
	Timers interface {
		AfterFunc(d time.Duration, f func()) Timer
	}

	// Timer is a pending one-shot timer, see [Timers].
	Timer interface {
		// Stop prevents the timer from firing, returning false if it has
		// already fired or been stopped.
		Stop() bool
	}

	// RealTimers implements Timers using the runtime's timers.
	RealTimers struct{}
)

var (
	// compile time assertions

	_ Timers = RealTimers{}
	_ Timer  = (*time.Timer)(nil)
)

// AfterFunc calls [time.AfterFunc].
func (RealTimers) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
