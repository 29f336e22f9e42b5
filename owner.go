// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package eventqueue

type (
	// Owner is the wake primitive of a queue's consuming goroutine.
	//
	// Implementations must behave like a single "thread flag": Wake sets the
	// flag (and must never block), Wait blocks until the flag is set, then
	// clears it. A Wake that happens before Wait must cause that Wait to
	// return immediately. Spurious returns from Wait are tolerated.
	Owner interface {
		Wait()
		Wake()
	}

	// Thread is the portable Owner implementation, a buffered channel of
	// capacity one. Instances must be initialized using NewThread.
	Thread struct {
		flag chan struct{}
	}
)

var (
	// compile time assertions

	_ Owner = (*Thread)(nil)
)

// NewThread initializes a new Thread, with its flag unset.
func NewThread() *Thread {
	return &Thread{flag: make(chan struct{}, 1)}
}

// Wait blocks until the flag is set, then clears it.
func (x *Thread) Wait() {
	<-x.flag
}

// Wake sets the flag, which is a no-op if it is already set.
func (x *Thread) Wake() {
	select {
	case x.flag <- struct{}{}:
	default:
	}
}
