//go:build linux

package eventqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEventFD(t *testing.T) Owner {
	t.Helper()
	owner, err := NewEventFD()
	require.NoError(t, err)
	t.Cleanup(func() { _ = owner.Close() })
	return owner
}

func TestEventFD_stickyWake(t *testing.T) {
	owner := newTestEventFD(t)

	// multiple wakes coalesce into a single flag
	owner.Wake()
	owner.Wake()
	owner.Wake()

	returned := make(chan struct{})
	go func() {
		owner.Wait()
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not observe the prior Wake")
	}

	blocked := make(chan struct{})
	go func() {
		owner.Wait()
		close(blocked)
	}()
	select {
	case <-blocked:
		t.Fatal("Wait returned without a Wake")
	case <-time.After(20 * time.Millisecond):
	}
	owner.Wake()
	select {
	case <-blocked:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait was not woken")
	}
}

func TestEventFD_queueRoundTrip(t *testing.T) {
	q := NewQueue(newTestEventFD(t))
	e := newTestEvents(2)
	q.Post(e[0])
	q.Post(e[1])
	assert.Same(t, e[0], q.Wait())
	assert.Same(t, e[1], q.Wait())
	assert.Nil(t, q.Get())
}
