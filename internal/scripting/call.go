// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package scripting

import "github.com/dop251/goja"

// State is the lifecycle state of a Call.
type State int

const (
	// StateRunning means the host is inside the engine executing script code
	StateRunning State = iota
	// StateSuspended means the script called pause() and holds a Continuation
	StateSuspended
	// StateFinished means the entry point returned; Result is valid
	StateFinished
	// StateFailed means the call ended with a classified error; Err is valid
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// outcome is what a script goroutine reports when it hands control back.
type outcome struct {
	paused bool
	value  goja.Value
	err    error
}

// resumeMsg is what the host sends a paused script goroutine.
type resumeMsg struct {
	response interface{}
	abort    bool
}

// Call is one logical invocation of an entry point.
// Its state only changes through Environment.Invoke and Continuation.Resume.
type Call struct {
	env    *Environment
	entry  string
	source string

	state   State
	result  interface{}
	err     error
	pending *Continuation
	aborted bool
	steps   int

	yield  chan outcome
	resume chan resumeMsg
}

func newCall(env *Environment, entry, source string) *Call {
	return &Call{
		env:    env,
		entry:  entry,
		source: source,
		state:  StateRunning,
		yield:  make(chan outcome, 1),
		resume: make(chan resumeMsg, 1),
	}
}

// Entry returns the entry point name ("" for top-level source code).
func (c *Call) Entry() string { return c.entry }

// Source returns the identifier of the unit that defines the entry point.
func (c *Call) Source() string { return c.source }

func (c *Call) State() State { return c.state }

// Finished reports whether the call reached a terminal state.
func (c *Call) Finished() bool {
	return c.state == StateFinished || c.state == StateFailed
}

func (c *Call) Suspended() bool { return c.state == StateSuspended }

// Result returns the exported return value. Only meaningful once finished.
func (c *Call) Result() interface{} { return c.result }

// Err returns the classified failure. Only meaningful once failed.
func (c *Call) Err() error { return c.err }

// Steps returns how many invoke/resume steps have run.
func (c *Call) Steps() int { return c.steps }

// Continuation returns the pending continuation, or nil unless suspended.
func (c *Call) Continuation() *Continuation { return c.pending }

// Resume resumes the pending continuation with response.
func (c *Call) Resume(response interface{}) error {
	if c.state != StateSuspended || c.pending == nil {
		return c.stateError("resume on a " + c.state.String() + " call")
	}
	return c.pending.Resume(response)
}

func (c *Call) suspend() {
	c.state = StateSuspended
	c.pending = &Continuation{call: c}
}

func (c *Call) finish(v interface{}) {
	c.state = StateFinished
	c.result = v
}

func (c *Call) fail(err error) {
	c.state = StateFailed
	c.err = err
}

func (c *Call) stateError(msg string) error {
	return &Error{Kind: ErrInvalidState, Source: c.source, Entry: c.entry, Message: msg}
}

// Continuation is the captured state of a Call at a pause() point.
// It is consumed by exactly one Resume.
type Continuation struct {
	call     *Call
	consumed bool
}

// Call returns the call this continuation belongs to.
func (k *Continuation) Call() *Call { return k.call }

// Resume feeds response to the paused pause() expression and runs the script
// until it finishes, fails or pauses again. The returned error is non-nil only
// when the continuation was already consumed or is no longer current; script
// failures are reported through the Call.
func (k *Continuation) Resume(response interface{}) error {
	c := k.call
	if k.consumed || c.pending != k || c.state != StateSuspended {
		return c.stateError("continuation already consumed")
	}
	k.consumed = true
	c.pending = nil
	return c.env.resumeCall(c, response)
}
