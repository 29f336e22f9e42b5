// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package eventqueue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/logiface"
)

type (
	// Queue is a FIFO queue of events, bound to a single consuming goroutine
	// (the owner), which any goroutine may post to.
	//
	// The zero value must be initialized using [Queue.Init] before use, or
	// NewQueue may be used instead. Queues must not be copied.
	Queue struct {
		owner  Owner
		logger *logiface.Logger[logiface.Event]
		timers Timers

		// consumer is the goroutine id of the first retrieving goroutine,
		// only tracked if debugAssertions is enabled
		consumer atomic.Uint64

		// mu is the critical section, guarding the list links, and stats
		mu     sync.Mutex
		head   *Event
		tail   *Event
		length int
		stats  Stats
	}

	// Stats models counters for a Queue, see [Queue.Stats].
	Stats struct {
		// Posted is the number of events linked into the queue by Post.
		Posted uint64
		// Duplicates is the number of Post calls that were no-ops, because
		// the event was already queued.
		Duplicates uint64
		// Canceled is the number of events removed by Cancel.
		Canceled uint64
		// Retrieved is the number of events popped by Get or Wait.
		Retrieved uint64
		// Panics is the number of handler panics recovered by Loop or Run.
		Panics uint64
	}
)

// NewQueue allocates and initializes a new Queue, see [Queue.Init].
func NewQueue(owner Owner, options ...Option) *Queue {
	var q Queue
	q.Init(owner, options...)
	return &q
}

// Init binds owner to the queue. Must be called before any other method,
// and must not be called while the queue is in use. Panics if owner is nil.
func (x *Queue) Init(owner Owner, options ...Option) {
	if owner == nil {
		panic(`eventqueue: nil owner`)
	}

	if debugAssertions {
		x.mu.Lock()
		pending := x.head != nil
		x.mu.Unlock()
		if pending {
			panic(`eventqueue: init of a queue with pending events`)
		}
	}

	cfg := resolveQueueOptions(options)

	x.owner = owner
	x.logger = cfg.logger
	x.timers = cfg.timers
	x.consumer.Store(0)

	x.logger.Debug().
		Str(`owner`, fmt.Sprintf(`%T`, owner)).
		Log(`event queue initialized`)
}

// Post links ev at the tail of the queue, then wakes the owner, unless ev is
// already queued (in this or any other queue), in which case it is a no-op,
// and ev keeps its current position.
//
// Post never fails, never allocates, and is safe to call from any goroutine.
func (x *Queue) Post(ev *Event) {
	if debugAssertions && x.owner == nil {
		panic(`eventqueue: post to an uninitialized queue`)
	}

	x.mu.Lock()
	if !ev.queue.CompareAndSwap(nil, x) {
		x.stats.Duplicates++
		x.mu.Unlock()
		return
	}
	ev.next = nil
	if x.tail == nil {
		x.head = ev
	} else {
		x.tail.next = ev
	}
	x.tail = ev
	x.length++
	x.stats.Posted++
	x.mu.Unlock()

	x.owner.Wake()
}

// Cancel removes ev from the queue, if it is queued in this queue, reporting
// whether it was removed. It is a no-op if ev was never posted, has already
// been retrieved, or was already canceled. Runs in O(n).
//
// Cancel is safe to call from any goroutine. If dispatch of ev has already
// begun, Cancel has no effect.
func (x *Queue) Cancel(ev *Event) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	if ev.queue.Load() != x {
		return false
	}

	var prev *Event
	for cur := x.head; cur != nil; prev, cur = cur, cur.next {
		if cur != ev {
			continue
		}
		if prev == nil {
			x.head = cur.next
		} else {
			prev.next = cur.next
		}
		if x.tail == cur {
			x.tail = prev
		}
		cur.next = nil
		x.length--
		x.stats.Canceled++
		cur.queue.Store(nil)
		return true
	}

	// unreachable unless the links are corrupt
	return false
}

// Get removes and returns the event at the head of the queue, or nil, if the
// queue is empty. Must only be called by the owner.
//
// The returned event is unqueued, and may be posted again, e.g. by its own
// handler. Call [Event.Dispatch] to handle it.
func (x *Queue) Get() *Event {
	if debugAssertions {
		x.assertConsumer()
	}

	x.mu.Lock()
	ev := x.head
	if ev != nil {
		x.head = ev.next
		if x.head == nil {
			x.tail = nil
		}
		ev.next = nil
		x.length--
		x.stats.Retrieved++
		// must be last, a concurrent Post may relink ev as soon as it's nil
		ev.queue.Store(nil)
	}
	x.mu.Unlock()

	return ev
}

// Wait is like Get, but blocks until an event is available. There is no
// timeout, see [Timeout] for bounded waits. Must only be called by the owner.
func (x *Queue) Wait() *Event {
	for {
		if ev := x.Get(); ev != nil {
			return ev
		}
		x.owner.Wait()
	}
}

// Loop waits for, then dispatches, events, forever. Must only be called by
// the owner. Handler panics are recovered and logged.
func (x *Queue) Loop() {
	for {
		x.dispatch(x.Wait())
	}
}

// Run is like Loop, but returns ctx.Err() once ctx is done. Events that are
// still queued at that point remain queued.
func (x *Queue) Run(ctx context.Context) error {
	// wakes the owner, so it observes the cancellation
	stop := context.AfterFunc(ctx, x.owner.Wake)
	defer stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ev := x.Get(); ev != nil {
			x.dispatch(ev)
		} else {
			x.owner.Wait()
		}
	}
}

// Len returns the number of queued events, which may be stale by the time it
// is observed.
func (x *Queue) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.length
}

// Stats returns a snapshot of the queue's counters.
func (x *Queue) Stats() Stats {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.stats
}

// dispatch executes a handler with panic recovery.
func (x *Queue) dispatch(ev *Event) {
	defer func() {
		if r := recover(); r != nil {
			x.mu.Lock()
			x.stats.Panics++
			x.mu.Unlock()
			x.logger.Err().
				Err(PanicError{Value: r}).
				Log(`event handler panicked`)
		}
	}()
	ev.Dispatch()
}
