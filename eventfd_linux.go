// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package eventqueue

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// EventFD is an Owner backed by a (blocking) Linux eventfd, in non-semaphore
// mode, meaning a read consumes every pending wake at once, which gives the
// same "thread flag" semantics as [Thread]. Instances must be initialized
// using NewEventFD, and should be closed once no longer in use.
type EventFD struct {
	fd int
}

var (
	// compile time assertions

	_ Owner = (*EventFD)(nil)
)

// NewEventFD creates a new eventfd based Owner.
func NewEventFD() (*EventFD, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf(`eventqueue: eventfd: %w`, err)
	}
	return &EventFD{fd: fd}, nil
}

// Wait blocks the calling goroutine (and its OS thread) until the eventfd
// counter is non-zero, then resets it. It returns early if the read fails
// for any reason other than an interrupt, e.g. after Close.
func (x *EventFD) Wait() {
	var buf [8]byte
	for {
		if _, err := unix.Read(x.fd, buf[:]); err != unix.EINTR {
			return
		}
	}
}

// Wake increments the eventfd counter. Write errors are ignored, as they
// only occur once the eventfd is closed.
func (x *EventFD) Wake() {
	// native endianness, as required by eventfd
	var one uint64 = 1
	buf := (*[8]byte)(unsafe.Pointer(&one))[:]
	for {
		if _, err := unix.Write(x.fd, buf); err != unix.EINTR {
			return
		}
	}
}

// Close releases the eventfd. It must not be called while a queue bound to
// this owner is still in use.
func (x *EventFD) Close() error {
	return unix.Close(x.fd)
}
