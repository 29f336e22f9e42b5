// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package eventqueue

import (
	"runtime"
)

// assertConsumer panics if the caller isn't the first goroutine to have
// retrieved from the queue, since it was initialized.
func (x *Queue) assertConsumer() {
	id := goroutineID()
	if x.consumer.CompareAndSwap(0, id) {
		return
	}
	if x.consumer.Load() != id {
		panic(`eventqueue: retrieval by a goroutine other than the owner`)
	}
}

// goroutineID parses the current goroutine's id from its stack header.
// Expensive, only used for assertions.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len(`goroutine `); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}
