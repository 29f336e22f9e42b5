// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package jscoap

import (
	"math"
	"time"

	"github.com/dop251/goja"
	"github.com/joeycumines/go-eventqueue"
)

// jsTimer is a pending setTimeout call, which fires by posting its callback
// event to the runtime's queue.
type jsTimer struct {
	fn      goja.Callable
	args    []goja.Value
	cb      eventqueue.Callback[*jsTimer]
	timeout eventqueue.Timeout
	id      int64
}

func (x *Runtime) setTimeout(call goja.FunctionCall) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(x.vm.NewTypeError(`setTimeout requires a function as first argument`))
	}
	delay := timerDelay(call.Argument(1).ToInteger())

	x.nextTimerID++
	t := &jsTimer{
		fn: fn,
		id: x.nextTimerID,
	}
	if len(call.Arguments) > 2 {
		t.args = append([]goja.Value(nil), call.Arguments[2:]...)
	}
	t.cb.Init(x.fireTimer, t)
	t.timeout.Init(x.queue, &t.cb.Event)
	x.timers[t.id] = t

	t.timeout.Set(delay)

	return x.vm.ToValue(t.id)
}

// timerDelay converts a setTimeout delay in milliseconds, clamped to the
// range of time.Duration.
func timerDelay(ms int64) time.Duration {
	switch {
	case ms <= 0:
		return 0
	case ms > math.MaxInt64/int64(time.Millisecond):
		return math.MaxInt64
	default:
		return time.Duration(ms) * time.Millisecond
	}
}

func (x *Runtime) clearTimeout(call goja.FunctionCall) goja.Value {
	id := call.Argument(0).ToInteger()
	if t := x.timers[id]; t != nil {
		delete(x.timers, id)
		t.timeout.Clear()
		x.queue.Cancel(&t.cb.Event)
	}
	return goja.Undefined()
}

func (x *Runtime) fireTimer(t *jsTimer) {
	if x.timers[t.id] != t {
		return
	}
	delete(x.timers, t.id)
	if _, err := t.fn(goja.Undefined(), t.args...); err != nil {
		x.logger.Err().
			Int64(`timer`, t.id).
			Err(err).
			Log(`timer callback error`)
	}
}
