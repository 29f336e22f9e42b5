// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package jscoap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/go-eventqueue"
	"github.com/joeycumines/logiface"
)

// ModuleName is the name under which the coap API may also be loaded, via
// require, e.g. const coap = require('coap').
const ModuleName = `coap`

var (
	// ErrNilQueue is returned by New when given a nil queue.
	ErrNilQueue = errors.New(`jscoap: nil queue`)
	// ErrNilRequest is returned by Runtime.Serve when given a nil request.
	ErrNilRequest = errors.New(`jscoap: nil request`)
	// ErrInvalidRates is returned by New for rate limits catrate rejects.
	ErrInvalidRates = errors.New(`jscoap: invalid rate limits`)
)

type (
	// Runtime is a JavaScript runtime, bound to the owner of an event queue.
	//
	// RunScript must only be called by the queue's owner, which must also be
	// draining the queue (e.g. via Loop) for Serve or timers to progress.
	Runtime struct {
		queue   *eventqueue.Queue
		vm      *goja.Runtime
		logger  *logiface.Logger[logiface.Event]
		limiter *catrate.Limiter
		output  io.Writer

		// timers is only accessed by the owner
		timers      map[int64]*jsTimer
		nextTimerID int64

		mu        sync.RWMutex
		resources map[string]*resource
	}

	resource struct {
		fn      goja.Callable
		path    string
		methods Method
	}

	// exchange is a request in flight, dispatched via a callback event
	exchange struct {
		res  *resource
		req  *Request
		done chan struct{}
		resp Response
	}
)

// New initializes a Runtime, installing the print and coap globals, as well
// as setTimeout and clearTimeout, which are backed by queue.
func New(queue *eventqueue.Queue, options ...Option) (*Runtime, error) {
	if queue == nil {
		return nil, ErrNilQueue
	}

	cfg := resolveRuntimeOptions(options)

	limiter, err := newLimiter(cfg.rates)
	if err != nil {
		return nil, err
	}

	x := &Runtime{
		queue:     queue,
		vm:        goja.New(),
		logger:    cfg.logger,
		limiter:   limiter,
		output:    cfg.output,
		timers:    make(map[int64]*jsTimer),
		resources: make(map[string]*resource),
	}

	if err := x.bindGlobals(); err != nil {
		return nil, err
	}

	return x, nil
}

func newLimiter(rates map[time.Duration]int) (limiter *catrate.Limiter, err error) {
	if len(rates) == 0 {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			limiter, err = nil, fmt.Errorf(`%w: %v`, ErrInvalidRates, rates)
		}
	}()
	return catrate.NewLimiter(rates), nil
}

func (x *Runtime) bindGlobals() error {
	coap, err := x.newCoapObject()
	if err != nil {
		return err
	}

	registry := require.NewRegistry()
	registry.RegisterNativeModule(ModuleName, x.requireCoap)
	registry.Enable(x.vm)

	for _, v := range [...]struct {
		name  string
		value any
	}{
		{`print`, x.print},
		{`coap`, coap},
		{`setTimeout`, x.setTimeout},
		{`clearTimeout`, x.clearTimeout},
	} {
		if err := x.vm.Set(v.name, v.value); err != nil {
			return fmt.Errorf(`jscoap: bind %s: %w`, v.name, err)
		}
	}

	return nil
}

// requireCoap is the [require.ModuleLoader] for ModuleName, exporting the
// same API as the coap global.
func (x *Runtime) requireCoap(vm *goja.Runtime, module *goja.Object) {
	coap, err := x.newCoapObject()
	if err != nil {
		panic(vm.NewGoError(err))
	}
	if err := module.Set(`exports`, coap); err != nil {
		panic(vm.NewGoError(err))
	}
}

func (x *Runtime) newCoapObject() (*goja.Object, error) {
	method := x.vm.NewObject()
	for _, v := range methodNames {
		if err := method.Set(v.name, int64(v.method)); err != nil {
			return nil, err
		}
	}

	code := x.vm.NewObject()
	for _, v := range replyCodes {
		if err := code.Set(v.name, int64(v.code)); err != nil {
			return nil, err
		}
	}

	coap := x.vm.NewObject()
	for _, v := range [...]struct {
		name  string
		value any
	}{
		{`register_handler`, x.registerHandler},
		{`method`, method},
		{`code`, code},
	} {
		if err := coap.Set(v.name, v.value); err != nil {
			return nil, err
		}
	}

	return coap, nil
}

// RunScript executes src in the global scope. Must only be called by the
// queue's owner.
func (x *Runtime) RunScript(name, src string) error {
	x.logger.Debug().
		Str(`script`, name).
		Log(`running script`)
	if _, err := x.vm.RunScript(name, src); err != nil {
		x.logger.Err().
			Str(`script`, name).
			Err(err).
			Log(`script error`)
		return fmt.Errorf(`jscoap: %s: %w`, name, err)
	}
	return nil
}

// Paths returns the registered resource paths, sorted.
func (x *Runtime) Paths() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	paths := make([]string, 0, len(x.resources))
	for path := range x.resources {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Serve handles req, and may be called from any goroutine, other than the
// queue's owner. Requests for registered resources are handled by the script,
// on the owner, and Serve blocks until it has replied.
//
// If ctx is done before the request is dispatched, it is withdrawn, and
// ctx.Err() is returned. Once dispatch has begun, Serve waits for the reply,
// regardless of ctx.
func (x *Runtime) Serve(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}

	if !req.Method.single() {
		return &Response{Code: CodeBadRequest}, nil
	}

	x.mu.RLock()
	res := x.resources[req.Path]
	x.mu.RUnlock()

	if res == nil {
		return &Response{Code: CodeNotFound}, nil
	}
	if req.Method&res.methods == 0 {
		return &Response{Code: CodeMethodNotAllowed}, nil
	}

	if next, ok := x.limiter.Allow(req.Path); !ok {
		x.logger.Warning().
			Str(`path`, req.Path).
			Str(`method`, req.Method.String()).
			Log(`request rate limited`)
		return &Response{Code: CodeTooManyRequests, RetryAt: next}, nil
	}

	ex := &exchange{
		res:  res,
		req:  req,
		done: make(chan struct{}),
		resp: Response{Code: CodeInternalServerError},
	}
	cb := eventqueue.NewCallback(x.handle, ex)
	x.queue.Post(&cb.Event)

	select {
	case <-ex.done:
	case <-ctx.Done():
		if x.queue.Cancel(&cb.Event) {
			return nil, ctx.Err()
		}
		<-ex.done
	}

	return &ex.resp, nil
}

// handle runs the script's handler for an exchange, on the owner.
func (x *Runtime) handle(ex *exchange) {
	defer close(ex.done)

	obj := x.vm.NewObject()
	args := []goja.Value{x.vm.ToValue(int64(ex.req.Method))}
	if len(ex.req.Payload) != 0 {
		payload := x.vm.ToValue(string(ex.req.Payload))
		_ = obj.Set(`payload`, payload)
		args = append(args, payload)
	}

	ret, err := ex.res.fn(obj, args...)
	if err != nil {
		x.logger.Err().
			Str(`path`, ex.res.path).
			Err(err).
			Log(`resource handler error`)
		return
	}

	code, ok := exportCode(ret)
	if !ok {
		x.logger.Err().
			Str(`path`, ex.res.path).
			Str(`returned`, ret.String()).
			Log(`resource handler returned an invalid code`)
		return
	}
	ex.resp.Code = code

	if reply := obj.Get(`reply`); reply != nil && !goja.IsUndefined(reply) && !goja.IsNull(reply) {
		ex.resp.Payload = []byte(reply.String())
	}
}

func exportCode(v goja.Value) (Code, bool) {
	var n int64
	switch v := v.Export().(type) {
	case int64:
		n = v
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		n = int64(v)
	default:
		return 0, false
	}
	if n < 0 || n > 0xff || !Code(n).valid() {
		return 0, false
	}
	return Code(n), true
}

func (x *Runtime) print(call goja.FunctionCall) goja.Value {
	parts := make([]string, len(call.Arguments))
	for i, arg := range call.Arguments {
		parts[i] = arg.String()
	}
	_, _ = fmt.Fprintln(x.output, strings.Join(parts, ` `))
	return goja.Undefined()
}

func (x *Runtime) registerHandler(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) < 3 {
		panic(x.vm.NewTypeError(`coap.register_handler(): not enough arguments`))
	}
	path, ok := call.Argument(0).Export().(string)
	if !ok {
		panic(x.vm.NewTypeError(`coap.register_handler(): arg 0 not a string`))
	}
	switch call.Argument(1).Export().(type) {
	case int64, float64:
	default:
		panic(x.vm.NewTypeError(`coap.register_handler(): arg 1 not a number (expected or'ed coap methods)`))
	}
	fn, ok := goja.AssertFunction(call.Argument(2))
	if !ok {
		panic(x.vm.NewTypeError(`coap.register_handler(): arg 2 not a function`))
	}

	res := &resource{
		fn:      fn,
		path:    path,
		methods: Method(call.Argument(1).ToInteger()),
	}

	x.mu.Lock()
	x.resources[path] = res
	x.mu.Unlock()

	x.logger.Debug().
		Str(`path`, path).
		Str(`methods`, res.methods.String()).
		Log(`resource registered`)

	handle := x.vm.NewObject()
	_ = handle.Set(`path`, path)
	_ = handle.Set(`methods`, int64(res.methods))
	_ = handle.Set(`unregister`, func(goja.FunctionCall) goja.Value {
		return x.vm.ToValue(x.unregister(res))
	})
	return handle
}

// unregister removes res, if it is still the registered resource for its
// path, returning true if it was removed.
func (x *Runtime) unregister(res *resource) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.resources[res.path] != res {
		return false
	}
	delete(x.resources, res.path)
	return true
}
