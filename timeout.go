// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package eventqueue

import (
	"sync"
	"time"
)

// Timeout posts a bound event into a bound queue, once a delay has elapsed.
//
// There is at most one pending arm. Calling Set while armed supersedes the
// previous arm, which will never post, even if its timer had already
// expired. Clear disarms. All methods are safe to call from any goroutine,
// including the queue's owner, and handlers of events in the target queue.
//
// The zero value must be initialized using [Timeout.Init] before use.
// Timeouts must not be copied.
type Timeout struct {
	queue *Queue
	event *Event
	timer Timer
	// gen is incremented on every arm and disarm, expiry posts only if its
	// generation is current
	gen uint64
	mu  sync.Mutex
}

// Init binds the target queue and event, disarming any pending arm. The
// queue must be initialized before Set is called.
func (x *Timeout) Init(queue *Queue, event *Event) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.disarm()
	x.queue = queue
	x.event = event
}

// Set arms the timeout, to post the event after delay, superseding any
// previous arm. A delay <= 0 posts as soon as the timer facility allows.
func (x *Timeout) Set(delay time.Duration) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.disarm()

	gen := x.gen
	x.timer = x.queue.timers.AfterFunc(delay, func() { x.fire(gen) })

	x.queue.logger.Debug().
		Dur(`delay`, delay).
		Uint64(`gen`, gen).
		Log(`timeout armed`)
}

// Clear disarms the timeout. It has no effect if the timeout already fired,
// in which case the event may still be queued, see [Queue.Cancel].
func (x *Timeout) Clear() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.disarm()
}

// Armed reports whether the timeout is pending, i.e. Set has been called,
// and it has neither fired nor been cleared since.
func (x *Timeout) Armed() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.timer != nil
}

func (x *Timeout) disarm() {
	if x.timer != nil {
		x.timer.Stop()
		x.timer = nil
	}
	x.gen++
}

// fire is the expiry callback, posting under the lock, so it can't race
// with a concurrent Set or Clear.
func (x *Timeout) fire(gen uint64) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if gen != x.gen || x.timer == nil {
		return
	}
	x.timer = nil

	x.queue.logger.Debug().
		Uint64(`gen`, gen).
		Log(`timeout fired`)

	x.queue.Post(x.event)
}
