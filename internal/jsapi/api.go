// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package jsapi provides the host functions available to interaction scripts.
//
// Functions are organized into domain-specific files:
//   - api.go: Core API struct, registration, output
//   - dialogue.go: Functions built on pause(): wait, choose
//   - helpers.go: Type conversion utilities
package jsapi

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dop251/goja"
)

// API provides host bindings for one script runtime.
type API struct {
	runtime *goja.Runtime
	output  func(string)
	logger  *slog.Logger
}

// NewAPI creates a new JavaScript API instance.
// A nil output prints to stdout; a nil logger uses slog.Default().
func NewAPI(output func(string), logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		output: output,
		logger: logger,
	}
}

// RegisterAll registers all API functions on the given Goja runtime.
// The runtime must already provide pause().
func (a *API) RegisterAll(vm *goja.Runtime) error {
	a.runtime = vm

	set := func(name string, fn func(goja.FunctionCall) goja.Value) error {
		return vm.Set(name, fn)
	}

	// Output functions
	if err := set("print", a.jsPrint); err != nil {
		return fmt.Errorf("failed to register print: %w", err)
	}
	if err := set("log", a.jsLog); err != nil {
		return fmt.Errorf("failed to register log: %w", err)
	}

	// Suspending helpers
	if err := set("wait", a.jsWait); err != nil {
		return fmt.Errorf("failed to register wait: %w", err)
	}
	if err := set("choose", a.jsChoose); err != nil {
		return fmt.Errorf("failed to register choose: %w", err)
	}

	return nil
}

// output helper for internal use.
func (a *API) outputMsg(msg string) {
	if a.output != nil {
		a.output(msg)
	} else {
		fmt.Println(msg)
	}
}

// jsPrint sends a message to the host output, e.g. the player's chat box.
func (a *API) jsPrint(call goja.FunctionCall) goja.Value {
	a.outputMsg(joinArgs(call.Arguments))
	return goja.Undefined()
}

// jsLog writes a debug message to the host log.
func (a *API) jsLog(call goja.FunctionCall) goja.Value {
	a.logger.Debug(joinArgs(call.Arguments), "origin", "script")
	return goja.Undefined()
}

func joinArgs(args []goja.Value) string {
	vals := make([]interface{}, len(args))
	for i, arg := range args {
		vals[i] = arg.Export()
	}
	return strings.TrimSuffix(fmt.Sprintln(vals...), "\n")
}
