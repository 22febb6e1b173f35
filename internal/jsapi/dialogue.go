// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package jsapi

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dop251/goja"
)

// pause calls the runtime's pause() once and returns its response.
// ok is false when the pause did not return normally; in that case the
// runtime has been re-interrupted (or an exception re-thrown) and the caller
// must return immediately.
func (a *API) pause() (v goja.Value, ok bool) {
	fn, found := goja.AssertFunction(a.runtime.Get("pause"))
	if !found {
		panic(a.runtime.NewTypeError("pause() is not available"))
	}
	v, err := fn(goja.Undefined())
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			a.runtime.Interrupt(interrupted.Value())
			return goja.Undefined(), false
		}
		panic(err)
	}
	return v, true
}

// jsWait pauses n times (default 1), i.e. waits n ticks.
// Returns the response of the last resume.
// wait(3) -> response of the third tick
func (a *API) jsWait(call goja.FunctionCall) goja.Value {
	n := uint64(1)
	if len(call.Arguments) > 0 && !goja.IsUndefined(call.Arguments[0]) {
		n = toUint64(a.runtime, call.Arguments[0])
	}

	last := goja.Undefined()
	for i := uint64(0); i < n; i++ {
		v, ok := a.pause()
		if !ok {
			return goja.Undefined()
		}
		last = v
	}
	return last
}

// jsChoose prints numbered options and pauses until a response selects one.
// Responses that are not a valid 1-based option number (including the empty
// "no input" response) are ignored.
// choose("Pick one", ["Yes", "No"]) -> 1 or 2
func (a *API) jsChoose(call goja.FunctionCall) goja.Value {
	a.requireArgs(call, 2, "choose() requires a prompt and an options array")

	prompt := call.Arguments[0].String()
	options := toStringArray(call.Arguments[1])
	if len(options) == 0 {
		panic(a.runtime.NewTypeError("choose() requires at least one option"))
	}

	a.outputMsg(prompt)
	for i, opt := range options {
		a.outputMsg(fmt.Sprintf("  %d. %s", i+1, opt))
	}

	for {
		v, ok := a.pause()
		if !ok {
			return goja.Undefined()
		}
		if choice, valid := optionIndex(v, len(options)); valid {
			return a.runtime.ToValue(choice)
		}
	}
}

// optionIndex interprets a response as a 1-based option number.
func optionIndex(v goja.Value, count int) (int, bool) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return 0, false
	}

	var n int64
	switch val := v.Export().(type) {
	case int64:
		n = val
	case float64:
		n = int64(val)
		if float64(n) != val {
			return 0, false
		}
	case string:
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}

	if n < 1 || n > int64(count) {
		return 0, false
	}
	return int(n), true
}
