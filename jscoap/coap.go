// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package jscoap bridges CoAP style requests, arriving on any goroutine, into
// a single threaded JavaScript runtime, driven by an [eventqueue.Queue].
//
// Scripts register resources with coap.register_handler(path, methods, fn).
// Each request is marshaled to the queue's owner as a callback event, where
// fn is called with the request method flag, and the payload (if any), as
// arguments. The handler's return value is the reply code, and this.reply
// (if set) is the reply payload.
package jscoap

import (
	"fmt"
	"strings"
	"time"
)

type (
	// Code is a CoAP response code, encoded as class<<5 | detail.
	Code uint8

	// Method is a CoAP request method flag, as used by register_handler.
	Method uint8

	// Request models an inbound request.
	Request struct {
		Method  Method
		Path    string
		Payload []byte
	}

	// Response models the reply to a Request.
	Response struct {
		// RetryAt is set for CodeTooManyRequests, if the limiter reported
		// when the next request would be allowed.
		RetryAt time.Time
		Payload []byte
		Code    Code
	}
)

const (
	MethodGet Method = 1 << iota
	MethodPost
	MethodPut
	MethodDelete
)

const (
	CodeCreated             Code = 2<<5 | 1
	CodeDeleted             Code = 2<<5 | 2
	CodeValid               Code = 2<<5 | 3
	CodeChanged             Code = 2<<5 | 4
	CodeContent             Code = 2<<5 | 5
	CodeBadRequest          Code = 4<<5 | 0
	CodeNotFound            Code = 4<<5 | 4
	CodeMethodNotAllowed    Code = 4<<5 | 5
	CodeTooManyRequests     Code = 4<<5 | 29
	CodeInternalServerError Code = 5<<5 | 0
)

var (
	methodNames = [...]struct {
		method Method
		name   string
	}{
		{MethodGet, `GET`},
		{MethodPost, `POST`},
		{MethodPut, `PUT`},
		{MethodDelete, `DELETE`},
	}

	replyCodes = [...]struct {
		code Code
		name string
	}{
		{CodeCreated, `CREATED`},
		{CodeDeleted, `DELETED`},
		{CodeValid, `VALID`},
		{CodeChanged, `CHANGED`},
		{CodeContent, `CONTENT`},
	}
)

// Class returns the code class, e.g. 2 for 2.05.
func (x Code) Class() uint8 { return uint8(x) >> 5 }

// Detail returns the code detail, e.g. 5 for 2.05.
func (x Code) Detail() uint8 { return uint8(x) & 0x1f }

// String formats the code in the dotted notation, e.g. "4.04".
func (x Code) String() string {
	return fmt.Sprintf(`%d.%02d`, x.Class(), x.Detail())
}

// valid reports whether a script may reply with the code.
func (x Code) valid() bool {
	for _, v := range replyCodes {
		if v.code == x {
			return true
		}
	}
	return false
}

// String formats the method flags, e.g. "GET|PUT".
func (x Method) String() string {
	var parts []string
	for _, v := range methodNames {
		if x&v.method != 0 {
			parts = append(parts, v.name)
			x &^= v.method
		}
	}
	if x != 0 {
		parts = append(parts, fmt.Sprintf(`0x%x`, uint8(x)))
	}
	if len(parts) == 0 {
		return `NONE`
	}
	return strings.Join(parts, `|`)
}

// single reports whether x is exactly one known method.
func (x Method) single() bool {
	for _, v := range methodNames {
		if x == v.method {
			return true
		}
	}
	return false
}
