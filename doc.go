// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package eventqueue provides an intrusive, allocation-free FIFO event queue,
// for handing deferred work from any number of producers to exactly one
// consuming goroutine.
//
// # Architecture
//
// An [Event] is a unit of deferred work: an embedded link, plus a [Handler].
// Events are "sender allocated", meaning [Queue.Post] never allocates, never
// fails, and never blocks beyond a short critical section around the list
// links. An event may be linked into at most one queue at a time, and posting
// an already-queued event is a no-op that preserves its position.
//
// A [Queue] is bound to a single [Owner], which is the wake primitive of the
// consuming goroutine. Only the owner may call [Queue.Get], [Queue.Wait],
// [Queue.Loop] or [Queue.Run]. Any goroutine (including timer callbacks and
// simulated interrupt handlers) may call [Queue.Post] and [Queue.Cancel].
//
// Two adapters are built on the primitive:
//   - [Callback] dispatches a bound function with a bound argument
//   - [Timeout] posts a bound event into a bound queue, after a delay
//
// # Owners
//
// The [Owner] interface models "thread flags": [Owner.Wake] sets a sticky
// flag, and [Owner.Wait] blocks until the flag is set, then clears it. This
// is what guarantees that a post racing with the owner's "is the queue empty"
// check is never missed. [Thread] is the portable implementation. On Linux,
// [EventFD] provides the same semantics using an eventfd.
//
// # Usage
//
//	var queue eventqueue.Queue
//	queue.Init(eventqueue.NewThread())
//
//	event := eventqueue.NewEvent(eventqueue.HandlerFunc(func(ev *eventqueue.Event) {
//	    fmt.Println("triggered")
//	}))
//
//	queue.Post(event)
//
//	go func() {
//	    var timeout eventqueue.Timeout
//	    timeout.Init(&queue, event)
//	    timeout.Set(time.Second)
//	}()
//
//	queue.Loop()
//
// # Misuse
//
// Calling Get or Wait from a goroutine other than the owner, posting to an
// uninitialized queue, or re-initializing a queue with pending events are
// programming errors. They are not checked at runtime, unless built with the
// eventqueue_debug build tag, in which case they panic.
package eventqueue
