// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package eventqueue

// Callback is an [Event] that calls a bound function, with a bound argument,
// when dispatched. Post it via its embedded Event, e.g. queue.Post(&cb.Event).
//
// As with Event, the caller owns the storage, and the zero value must be
// initialized using [Callback.Init] before use.
type Callback[T any] struct {
	Event
	fn  func(T)
	arg T
}

// NewCallback allocates and initializes a new Callback.
func NewCallback[T any](fn func(T), arg T) *Callback[T] {
	var cb Callback[T]
	cb.Init(fn, arg)
	return &cb
}

// Init binds fn and arg. It must not be called while the callback is queued.
func (x *Callback[T]) Init(fn func(T), arg T) {
	if fn == nil {
		panic(`eventqueue: nil callback func`)
	}
	x.fn = fn
	x.arg = arg
	x.Event.Init(x)
}

// HandleEvent calls the bound function with the bound argument.
func (x *Callback[T]) HandleEvent(*Event) {
	x.fn(x.arg)
}
