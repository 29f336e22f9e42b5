// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package eventqueue

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned (wrapped) by constructors of platform specific
// owners, on platforms where they are unavailable. It matches
// [errors.ErrUnsupported].
var ErrUnsupported = fmt.Errorf(`eventqueue: %w`, errors.ErrUnsupported)

// PanicError wraps a value recovered from a panicking [Handler].
type PanicError struct {
	Value any
}

func (e PanicError) Error() string {
	return fmt.Sprintf(`eventqueue: handler panic: %v`, e.Value)
}

// Unwrap returns the panic value, if it is an error, otherwise nil.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
