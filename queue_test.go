package eventqueue

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drain retrieves every queued event, in order.
func drain(q *Queue) (events []*Event) {
	for ev := q.Get(); ev != nil; ev = q.Get() {
		events = append(events, ev)
	}
	return events
}

func newTestEvents(n int) []*Event {
	events := make([]*Event, n)
	for i := range events {
		events[i] = NewEvent(nil)
	}
	return events
}

func TestQueue_Init_nilOwner(t *testing.T) {
	var q Queue
	assert.PanicsWithValue(t, `eventqueue: nil owner`, func() { q.Init(nil) })
}

func TestQueue_Get_empty(t *testing.T) {
	q := NewQueue(NewThread())
	assert.Nil(t, q.Get())
	assert.Zero(t, q.Len())
}

func TestQueue_fifoOrder(t *testing.T) {
	q := NewQueue(NewThread())
	events := newTestEvents(3)
	for _, ev := range events {
		q.Post(ev)
	}
	require.Equal(t, 3, q.Len())
	assert.Equal(t, events, drain(q))
	assert.Zero(t, q.Len())
	for _, ev := range events {
		assert.False(t, ev.Queued())
	}
}

func TestQueue_Post_idempotent(t *testing.T) {
	q := NewQueue(NewThread())
	e := newTestEvents(3)
	q.Post(e[0])
	q.Post(e[1])
	q.Post(e[1])
	q.Post(e[0])
	q.Post(e[2])
	assert.Equal(t, []*Event{e[0], e[1], e[2]}, drain(q))
	assert.Equal(t, Stats{Posted: 3, Duplicates: 2, Retrieved: 3}, q.Stats())
}

func TestQueue_Post_queuedElsewhere(t *testing.T) {
	q1 := NewQueue(NewThread())
	q2 := NewQueue(NewThread())
	ev := NewEvent(nil)
	q1.Post(ev)
	q2.Post(ev)
	assert.Nil(t, q2.Get())
	assert.False(t, q2.Cancel(ev))
	assert.Same(t, ev, q1.Get())
	q2.Post(ev)
	assert.Same(t, ev, q2.Get())
}

func TestQueue_Post_afterGet(t *testing.T) {
	q := NewQueue(NewThread())
	ev := NewEvent(nil)
	q.Post(ev)
	require.Same(t, ev, q.Get())
	q.Post(ev)
	assert.True(t, ev.Queued())
	assert.Same(t, ev, q.Get())
}

func TestQueue_Cancel(t *testing.T) {
	for _, tc := range [...]struct {
		name   string
		cancel int
		want   []int
	}{
		{`head`, 0, []int{1, 2}},
		{`middle`, 1, []int{0, 2}},
		{`tail`, 2, []int{0, 1}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			q := NewQueue(NewThread())
			e := newTestEvents(3)
			for _, ev := range e {
				q.Post(ev)
			}
			require.True(t, q.Cancel(e[tc.cancel]))
			assert.False(t, e[tc.cancel].Queued())

			// the tail must still be correct
			extra := NewEvent(nil)
			q.Post(extra)

			var want []*Event
			for _, i := range tc.want {
				want = append(want, e[i])
			}
			want = append(want, extra)
			assert.Equal(t, want, drain(q))
		})
	}
}

func TestQueue_Cancel_removes(t *testing.T) {
	q := NewQueue(NewThread())
	e := newTestEvents(2)
	q.Post(e[0])
	q.Post(e[1])
	assert.True(t, q.Cancel(e[0]))
	assert.Equal(t, []*Event{e[1]}, drain(q))
}

func TestQueue_Cancel_only(t *testing.T) {
	q := NewQueue(NewThread())
	ev := NewEvent(nil)
	q.Post(ev)
	assert.True(t, q.Cancel(ev))
	assert.Zero(t, q.Len())
	assert.Nil(t, q.Get())
	q.Post(ev)
	assert.Same(t, ev, q.Get())
}

func TestQueue_Cancel_absent(t *testing.T) {
	q := NewQueue(NewThread())
	e := newTestEvents(3)

	// never posted
	assert.False(t, q.Cancel(e[0]))

	// already drained
	q.Post(e[1])
	require.Same(t, e[1], q.Get())
	assert.False(t, q.Cancel(e[1]))

	// already canceled
	q.Post(e[2])
	q.Post(e[0])
	require.True(t, q.Cancel(e[2]))
	assert.False(t, q.Cancel(e[2]))

	assert.Equal(t, []*Event{e[0]}, drain(q))
	assert.Equal(t, uint64(1), q.Stats().Canceled)
}

func TestQueue_endToEnd(t *testing.T) {
	var q Queue
	q.Init(NewThread())

	var cA, cB int
	a := NewEvent(HandlerFunc(func(*Event) { cA++ }))
	b := NewEvent(HandlerFunc(func(*Event) { cB++ }))

	q.Post(a)
	q.Post(b)
	q.Cancel(b)

	ev := q.Get()
	require.NotNil(t, ev)
	ev.Dispatch()

	assert.Equal(t, 1, cA)
	assert.Equal(t, 0, cB)
	assert.Nil(t, q.Get())
	assert.Zero(t, q.Len())
}

func TestQueue_Wait_blockingWake(t *testing.T) {
	for _, tc := range [...]struct {
		name  string
		owner func(t *testing.T) Owner
	}{
		{`thread`, func(t *testing.T) Owner { return NewThread() }},
		{`eventfd`, newTestEventFD},
	} {
		t.Run(tc.name, func(t *testing.T) {
			q := NewQueue(tc.owner(t))
			ev := NewEvent(nil)

			result := make(chan *Event, 1)
			go func() { result <- q.Wait() }()

			// give the consumer a chance to park
			time.Sleep(10 * time.Millisecond)
			go q.Post(ev)

			select {
			case got := <-result:
				assert.Same(t, ev, got)
			case <-time.After(5 * time.Second):
				t.Fatal("consumer was not woken")
			}
		})
	}
}

// TestQueue_Wait_noMissedWakeup hammers the check-then-park window.
func TestQueue_Wait_noMissedWakeup(t *testing.T) {
	const n = 10000
	q := NewQueue(NewThread())
	events := newTestEvents(n)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range n {
			q.Wait()
		}
	}()

	for _, ev := range events {
		q.Post(ev)
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("consumer stalled with %d events queued", q.Len())
	}
}

func TestQueue_concurrentProducers(t *testing.T) {
	const (
		producers = 8
		perWorker = 500
	)
	q := NewQueue(NewThread())

	var (
		mu     sync.Mutex
		counts = make(map[int]int)
	)
	total := make(chan struct{}, producers*perWorker)

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := -1
			for i := range perWorker {
				cb := NewCallback(func(i int) {
					mu.Lock()
					// per producer order is preserved
					if i <= last {
						t.Errorf("producer %d: %d dispatched after %d", p, i, last)
					}
					last = i
					counts[p]++
					mu.Unlock()
					total <- struct{}{}
				}, i)
				q.Post(&cb.Event)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- q.Run(ctx) }()

	wg.Wait()
	for range producers * perWorker {
		select {
		case <-total:
		case <-time.After(10 * time.Second):
			t.Fatal("timed out waiting for dispatch")
		}
	}
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	for p := range producers {
		assert.Equal(t, perWorker, counts[p])
	}
	assert.Equal(t, uint64(producers*perWorker), q.Stats().Posted)
}

func TestQueue_Run_canceled(t *testing.T) {
	q := NewQueue(NewThread())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- q.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestQueue_Run_leavesPending(t *testing.T) {
	q := NewQueue(NewThread())
	ctx, cancel := context.WithCancel(context.Background())

	second := NewEvent(nil)
	q.Post(NewEvent(HandlerFunc(func(*Event) { cancel() })))
	q.Post(second)

	assert.ErrorIs(t, q.Run(ctx), context.Canceled)
	assert.True(t, second.Queued())
	assert.Equal(t, 1, q.Len())
}

func TestQueue_Run_repostFromHandler(t *testing.T) {
	q := NewQueue(NewThread())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var count int
	var ev Event
	ev.Init(HandlerFunc(func(ev *Event) {
		count++
		if count == 3 {
			cancel()
			return
		}
		q.Post(ev)
	}))
	q.Post(&ev)

	assert.ErrorIs(t, q.Run(ctx), context.Canceled)
	assert.Equal(t, 3, count)
}

func TestQueue_Run_handlerPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(&buf), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(logiface.LevelDebug),
	).Logger()

	q := NewQueue(NewThread(), WithLogger(logger))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sentinel := errors.New(`some error`)
	q.Post(NewEvent(HandlerFunc(func(*Event) { panic(sentinel) })))
	q.Post(NewEvent(HandlerFunc(func(*Event) { panic(`not an error`) })))
	q.Post(NewEvent(HandlerFunc(func(*Event) { cancel() })))

	assert.ErrorIs(t, q.Run(ctx), context.Canceled)
	assert.Equal(t, uint64(2), q.Stats().Panics)

	out := buf.String()
	assert.Contains(t, out, `event queue initialized`)
	assert.Contains(t, out, `event handler panicked`)
	assert.Contains(t, out, `eventqueue: handler panic: some error`)
	assert.Contains(t, out, `eventqueue: handler panic: not an error`)
}

func TestQueue_Loop(t *testing.T) {
	q := NewQueue(NewThread())
	dispatched := make(chan int, 3)
	for i := range 3 {
		q.Post(&NewCallback(func(i int) { dispatched <- i }, i).Event)
	}
	go q.Loop()
	for i := range 3 {
		select {
		case got := <-dispatched:
			assert.Equal(t, i, got)
		case <-time.After(5 * time.Second):
			t.Fatal("Loop did not dispatch")
		}
	}
}

func TestQueue_Stats(t *testing.T) {
	q := NewQueue(NewThread())
	e := newTestEvents(3)
	q.Post(e[0])
	q.Post(e[0])
	q.Post(e[1])
	q.Post(e[2])
	q.Cancel(e[1])
	q.Get()
	assert.Equal(t, Stats{Posted: 3, Duplicates: 1, Canceled: 1, Retrieved: 1}, q.Stats())
	assert.Equal(t, 1, q.Len())
}

func TestEvent_Dispatch_nilHandler(t *testing.T) {
	assert.NotPanics(t, func() { NewEvent(nil).Dispatch() })
}

func TestPanicError_Unwrap(t *testing.T) {
	sentinel := errors.New(`x`)
	assert.ErrorIs(t, PanicError{Value: sentinel}, sentinel)
	assert.NoError(t, PanicError{Value: 5}.Unwrap())
}

func TestResolveQueueOptions(t *testing.T) {
	cfg := resolveQueueOptions(nil)
	assert.Nil(t, cfg.logger)
	assert.Equal(t, RealTimers{}, cfg.timers)

	timers := new(manualTimers)
	logger := stumpy.L.New().Logger()
	cfg = resolveQueueOptions([]Option{nil, WithTimers(timers), WithLogger(logger), nil})
	assert.Same(t, timers, cfg.timers)
	assert.Same(t, logger, cfg.logger)

	cfg = resolveQueueOptions([]Option{WithTimers(timers), WithTimers(nil)})
	assert.Equal(t, RealTimers{}, cfg.timers)
}
