// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package scripting

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// errAbandoned interrupts a paused script whose continuation was dropped.
var errAbandoned = errors.New("call abandoned")

// Invoke calls the entry point name with args and runs it until it finishes,
// fails or pauses. It returns an error only when the entry point cannot be
// resolved or the environment cannot start a call; script failures are
// reported through the returned Call.
//
// One runtime has one stack, so at most one call per environment may be
// suspended at a time. Invoking while another call is suspended fails with
// ErrInvalidState.
func (e *Environment) Invoke(name string, args ...interface{}) (*Call, error) {
	if e.closed {
		return nil, &Error{Kind: ErrInvalidState, Entry: name, Message: "environment closed"}
	}
	if e.active != nil {
		return nil, &Error{Kind: ErrInvalidState, Entry: name, Message: "another call is suspended"}
	}
	fn, err := e.Callable(name)
	if err != nil {
		return nil, err
	}

	vals := make([]goja.Value, len(args))
	for i, arg := range args {
		vals[i] = e.vm.ToValue(arg)
	}

	c := newCall(e, name, e.definedIn[name])
	e.ledger.TopUp()
	e.start(c, func() (goja.Value, error) {
		return fn(goja.Undefined(), vals...)
	})
	return c, nil
}

// start runs body on a fresh goroutine owned by c and waits for its first
// outcome.
func (e *Environment) start(c *Call, body func() (goja.Value, error)) {
	c.steps++
	if e.ledger.Exhausted() {
		c.fail(e.budgetError(c))
		return
	}

	e.active = c
	go func() {
		var out outcome
		defer func() {
			if r := recover(); r != nil {
				out = outcome{err: fmt.Errorf("panic in script call: %v", r)}
			}
			c.yield <- out
		}()
		v, err := body()
		out = outcome{value: v, err: err}
	}()
	e.await(c)
}

func (e *Environment) resumeCall(c *Call, response interface{}) error {
	if e.closed {
		c.fail(c.stateError("environment closed"))
		return c.err
	}

	c.steps++
	c.state = StateRunning
	e.ledger.TopUp()
	if e.ledger.Exhausted() {
		e.abandon(c)
		c.fail(e.budgetError(c))
		return nil
	}

	c.resume <- resumeMsg{response: response}
	e.await(c)
	return nil
}

// await blocks until the script goroutine of c pauses or returns, charging
// the elapsed time to the ledger.
func (e *Environment) await(c *Call) {
	budget := armBudget(e.vm, e.ledger.Balance())
	started := e.now()

	out := <-c.yield

	if budget.disarm() {
		e.vm.ClearInterrupt()
	}
	e.ledger.Debit(e.now().Sub(started))

	switch {
	case out.paused:
		c.suspend()
	case out.err != nil:
		e.active = nil
		c.fail(e.classify(c, out.err))
	default:
		e.active = nil
		c.finish(export(out.value))
	}
}

// abandon unblocks the paused goroutine of c and waits for it to unwind.
// No script code runs: pause() interrupts the runtime before returning.
func (e *Environment) abandon(c *Call) {
	c.aborted = true
	c.resume <- resumeMsg{abort: true}
	<-c.yield
	e.vm.ClearInterrupt()
	e.active = nil
}

// jsPause implements pause() and fiber.pause(). It runs on the script
// goroutine and returns the response of the Resume that reactivates it.
func (e *Environment) jsPause(call goja.FunctionCall) goja.Value {
	c := e.active
	if c != nil && c.aborted {
		panic(e.unwind())
	}
	if c == nil || c.state != StateRunning {
		panic(e.vm.NewTypeError("pause() called outside of a script call"))
	}

	c.yield <- outcome{paused: true}
	msg := <-c.resume
	if msg.abort {
		panic(e.unwind())
	}
	return e.vm.ToValue(msg.response)
}

// unwind interrupts the runtime and returns the error pause() throws for an
// abandoned call. The interrupt fires before any catch or finally block runs,
// and the throw stops native callers that loop on pause().
func (e *Environment) unwind() goja.Value {
	e.vm.Interrupt(errAbandoned)
	return e.vm.NewGoError(errAbandoned)
}

func (e *Environment) classify(c *Call, err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if interrupted.Value() == ErrBudgetExceeded {
			return e.budgetError(c)
		}
		return &Error{Kind: ErrRuntime, Source: c.source, Entry: c.entry, Message: "interrupted", Cause: err}
	}

	var exception *goja.Exception
	if errors.As(err, &exception) {
		// String() includes the script stack trace
		return &Error{Kind: ErrRuntime, Source: c.source, Entry: c.entry, Message: exception.String(), Cause: err}
	}
	return &Error{Kind: ErrRuntime, Source: c.source, Entry: c.entry, Message: err.Error(), Cause: err}
}

func (e *Environment) budgetError(c *Call) error {
	return &Error{
		Kind:    ErrBudgetExceeded,
		Source:  c.source,
		Entry:   c.entry,
		Message: fmt.Sprintf("balance %v", e.ledger.Balance()),
	}
}

func export(v goja.Value) interface{} {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.Export()
}

// budgetTimer interrupts the runtime once the step has spent the balance
// it started with.
type budgetTimer struct {
	mu    sync.Mutex
	armed bool
	fired bool
	t     *time.Timer
}

func armBudget(vm *goja.Runtime, d time.Duration) *budgetTimer {
	if d < 0 {
		d = 0
	}
	b := &budgetTimer{armed: true}
	b.t = time.AfterFunc(d, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.armed {
			b.fired = true
			vm.Interrupt(ErrBudgetExceeded)
		}
	})
	return b
}

// disarm stops the timer and reports whether it interrupted the runtime.
// After disarm returns the timer can no longer interrupt.
func (b *budgetTimer) disarm() bool {
	b.t.Stop()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.armed = false
	return b.fired
}
