// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package eventqueue

import (
	"sync/atomic"
)

type (
	// Handler dispatches an event. It is invoked on the goroutine draining
	// the queue, after the event has been removed from it.
	Handler interface {
		HandleEvent(ev *Event)
	}

	// HandlerFunc adapts a function to a Handler.
	HandlerFunc func(ev *Event)

	// Event is an intrusive queue node, carrying a Handler.
	//
	// Events may be embedded into larger structs, e.g. to provide context to
	// the handler, see [Callback]. They must not be copied, and must remain
	// valid from the time they are posted, until their handler returns, or
	// they are canceled.
	Event struct {
		handler Handler

		// next is guarded by the critical section of the queue the event is
		// linked into
		next *Event

		// queue is the queue this event is linked into, or nil
		queue atomic.Pointer[Queue]
	}
)

var (
	// compile time assertions

	_ Handler = HandlerFunc(nil)
	_ Handler = (*Callback[any])(nil)
)

// HandleEvent calls x(ev).
func (x HandlerFunc) HandleEvent(ev *Event) { x(ev) }

// NewEvent allocates and initializes a new Event, see also [Event.Init].
func NewEvent(handler Handler) *Event {
	var ev Event
	ev.Init(handler)
	return &ev
}

// Init sets the handler of the event. It must not be called while the event
// is queued.
func (x *Event) Init(handler Handler) {
	x.handler = handler
}

// Queued reports whether the event is currently linked into any queue.
// The result is a snapshot, which may be stale if other goroutines post,
// cancel, or retrieve the event concurrently.
func (x *Event) Queued() bool {
	return x.queue.Load() != nil
}

// Dispatch invokes the event's handler, which is what [Queue.Loop] does, for
// each retrieved event. It is a no-op if the event has no handler.
func (x *Event) Dispatch() {
	if x.handler != nil {
		x.handler.HandleEvent(x)
	}
}
