package eventqueue

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	// manualTimers is a Timers implementation driven by Advance.
	manualTimers struct {
		mu     sync.Mutex
		now    time.Duration
		timers []*manualTimer
	}

	manualTimer struct {
		parent *manualTimers
		at     time.Duration
		f      func()
		done   bool
	}
)

func (x *manualTimers) AfterFunc(d time.Duration, f func()) Timer {
	x.mu.Lock()
	defer x.mu.Unlock()
	t := &manualTimer{parent: x, at: x.now + d, f: f}
	x.timers = append(x.timers, t)
	return t
}

func (x *manualTimer) Stop() bool {
	x.parent.mu.Lock()
	defer x.parent.mu.Unlock()
	if x.done {
		return false
	}
	x.done = true
	return true
}

// Advance moves the clock forward, then calls every due timer, in order,
// returning the number called.
func (x *manualTimers) Advance(d time.Duration) int {
	x.mu.Lock()
	x.now += d
	var due []*manualTimer
	for _, t := range x.timers {
		if !t.done && t.at <= x.now {
			t.done = true
			due = append(due, t)
		}
	}
	x.mu.Unlock()
	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
	return len(due)
}

// Pending returns the number of timers neither stopped nor fired.
func (x *manualTimers) Pending() (n int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, t := range x.timers {
		if !t.done {
			n++
		}
	}
	return n
}

func TestRealTimers_AfterFunc(t *testing.T) {
	fired := make(chan struct{})
	timer := RealTimers{}.AfterFunc(time.Millisecond, func() { close(fired) })
	require.NotNil(t, timer)
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("timer did not fire")
	}
	assert.False(t, timer.Stop(), "stop after fire")
}

func TestRealTimers_Stop(t *testing.T) {
	timer := RealTimers{}.AfterFunc(time.Hour, func() { t.Error("unexpected fire") })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
}
