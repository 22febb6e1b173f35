// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package scripting runs JavaScript interaction scripts that can suspend
// themselves across world ticks.
//
// An Environment owns one Goja runtime (the shared namespace), the sources
// loaded into it and a credit Ledger. Invoking an entry point yields a Call,
// which either finishes, fails, or suspends when the script calls pause().
// A suspended Call is advanced by resuming its Continuation with the value
// the paused expression should receive.
//
// Calls are not preempted. Each Call runs on its own goroutine, but control
// is handed back and forth over channels so that exactly one goroutine ever
// touches the runtime: the host is blocked while script code runs, and the
// script goroutine is parked while the host owns control.
package scripting

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound indicates an entry point is absent or not callable
	ErrNotFound = errors.New("entry point not found")

	// ErrParse indicates a source unit failed to compile
	ErrParse = errors.New("parse error")

	// ErrEntryCollision indicates a unit redefines an existing entry point
	// while the environment requires unique entry points
	ErrEntryCollision = errors.New("entry point collision")

	// ErrLibraryContract indicates a source unit paused at top level
	ErrLibraryContract = errors.New("library contract violation: pause() at top level")

	// ErrInvalidState indicates an operation on a call or continuation in the wrong state
	ErrInvalidState = errors.New("invalid call state")

	// ErrBudgetExceeded indicates the credit ledger ran out mid-step
	ErrBudgetExceeded = errors.New("script credit budget exceeded")

	// ErrRuntime indicates an uncaught error raised by script code
	ErrRuntime = errors.New("script runtime error")

	// ErrReloadSuspended indicates a reload was attempted while a call is suspended
	ErrReloadSuspended = errors.New("reload while a call is suspended")
)

// kinds lists the classifications in the order KindOf checks them.
var kinds = []error{
	ErrNotFound,
	ErrParse,
	ErrEntryCollision,
	ErrLibraryContract,
	ErrInvalidState,
	ErrBudgetExceeded,
	ErrRuntime,
	ErrReloadSuspended,
}

// Error is a classified scripting failure.
// errors.Is matches both the Kind sentinel and the underlying Cause.
type Error struct {
	Kind    error
	Source  string // source unit identifier, if known
	Entry   string // entry point name, if any
	Message string
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Source != "" {
		b.WriteString(" in ")
		b.WriteString(e.Source)
	}
	if e.Entry != "" {
		b.WriteString(" at ")
		b.WriteString(e.Entry)
		b.WriteString("()")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// KindOf returns the classification sentinel carried by err, or nil.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
