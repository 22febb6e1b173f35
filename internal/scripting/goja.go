// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package scripting

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dop251/goja"
)

// Environment is a persistent script namespace backed by one Goja runtime.
//
// Loading a unit evaluates it into the same global scope, so later units see
// names defined by earlier ones and redefinitions shadow silently. Names are
// never removed, not even when a reloaded source stops defining them.
//
// An Environment must be driven from one goroutine.
type Environment struct {
	vm     *goja.Runtime
	ledger *Ledger
	units  UnitSource
	unique bool
	log    *slog.Logger
	now    func() time.Time

	sources   map[string]*source
	order     []string
	definedIn map[string]string // entry point -> source id

	active *Call // call whose goroutine holds the runtime
	closed bool
}

// Option configures an Environment.
type Option func(*Environment)

// WithLedger sets the credit ledger. The default is a full ledger with
// DefaultMaxCredits and DefaultCreditsPerCall.
func WithLedger(l *Ledger) Option {
	return func(e *Environment) { e.ledger = l }
}

// WithUnitSource sets where LoadFile gets compiled units from.
// By default files are read and compiled on every load.
func WithUnitSource(src UnitSource) Option {
	return func(e *Environment) { e.units = src }
}

// WithUniqueEntryPoints makes Load fail with ErrEntryCollision when a unit
// declares a function whose name is already bound to a callable.
func WithUniqueEntryPoints() Option {
	return func(e *Environment) { e.unique = true }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Environment) { e.log = l }
}

// New creates an empty environment. The namespace starts with "pause" and
// "fiber.pause" bound, which suspend the running call.
func New(opts ...Option) *Environment {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	e := &Environment{
		vm:        vm,
		log:       slog.Default(),
		now:       time.Now,
		sources:   make(map[string]*source),
		definedIn: make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.ledger == nil {
		e.ledger = NewLedger(DefaultMaxCredits, DefaultCreditsPerCall)
	}

	fiber := vm.NewObject()
	if err := fiber.Set("pause", e.jsPause); err != nil {
		// Setting a property on a fresh object cannot fail
		panic("failed to bind fiber.pause: " + err.Error())
	}
	e.Set("fiber", fiber)
	e.Set("pause", e.jsPause)

	return e
}

// Set binds value under name, overwriting any previous binding.
func (e *Environment) Set(name string, value interface{}) {
	if err := e.vm.Set(name, value); err != nil {
		e.log.Warn("failed to bind script value", "name", name, "error", err)
	}
}

// Get returns the exported value bound to name, or nil.
func (e *Environment) Get(name string) interface{} {
	v := e.vm.Get(name)
	if v == nil {
		return nil
	}
	return v.Export()
}

// Names returns the sorted enumerable global bindings.
func (e *Environment) Names() []string {
	names := e.vm.GlobalObject().Keys()
	sort.Strings(names)
	return names
}

// Ledger returns the environment's credit ledger.
func (e *Environment) Ledger() *Ledger { return e.ledger }

// Runtime returns the underlying Goja runtime, for registering host APIs.
// Script code must only be run through Load and Invoke.
func (e *Environment) Runtime() *goja.Runtime { return e.vm }

// Load compiles content and executes it as top-level code.
func (e *Environment) Load(sourceID, content string) error {
	u, err := Compile(sourceID, content)
	if err != nil {
		return err
	}
	return e.loadUnit(u, "", e.unique)
}

// LoadFile loads the script at path. The path is the source identifier and
// is tracked for Stale and Reload.
func (e *Environment) LoadFile(path string) error {
	return e.loadFile(path, e.unique)
}

func (e *Environment) loadFile(path string, unique bool) error {
	u, err := e.unit(path)
	if err != nil {
		return err
	}
	return e.loadUnit(u, path, unique)
}

func (e *Environment) unit(path string) (*Unit, error) {
	if e.units != nil {
		return e.units.Unit(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return Compile(path, string(data))
}

func (e *Environment) loadUnit(u *Unit, path string, unique bool) error {
	if e.closed {
		return &Error{Kind: ErrInvalidState, Source: u.Name, Message: "environment closed"}
	}
	if e.active != nil {
		return &Error{Kind: ErrInvalidState, Source: u.Name, Message: "cannot load while a call is suspended"}
	}
	if unique {
		for _, name := range u.Functions {
			if _, ok := goja.AssertFunction(e.vm.Get(name)); ok {
				return &Error{
					Kind:    ErrEntryCollision,
					Source:  u.Name,
					Entry:   name,
					Message: "already defined by " + e.definedIn[name],
				}
			}
		}
	}

	e.track(u.Name, path)
	for _, name := range u.Functions {
		e.definedIn[name] = u.Name
	}

	c := newCall(e, "", u.Name)
	e.start(c, func() (goja.Value, error) {
		return e.vm.RunProgram(u.Program)
	})

	switch c.state {
	case StateSuspended:
		c.pending.consumed = true
		c.pending = nil
		e.abandon(c)
		c.fail(&Error{Kind: ErrLibraryContract, Source: u.Name})
		return c.err
	case StateFailed:
		return c.err
	}
	e.log.Debug("loaded script", "source", u.Name)
	return nil
}

// Callable resolves name to a function in the namespace.
func (e *Environment) Callable(name string) (goja.Callable, error) {
	v := e.vm.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, &Error{Kind: ErrNotFound, Entry: name}
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, &Error{Kind: ErrNotFound, Entry: name, Message: "binding is not a function"}
	}
	return fn, nil
}

// Suspended reports whether a call from this environment is suspended.
func (e *Environment) Suspended() bool {
	return e.active != nil && e.active.state == StateSuspended
}

// Close discards the environment. A suspended call is abandoned: its
// continuation is dropped without running any more script code and the call
// fails with ErrInvalidState. Close is idempotent.
func (e *Environment) Close() {
	if e.closed {
		return
	}
	if c := e.active; c != nil && c.state == StateSuspended {
		if c.pending != nil {
			c.pending.consumed = true
			c.pending = nil
		}
		e.abandon(c)
		c.fail(c.stateError("abandoned: environment closed"))
	}
	e.closed = true
}
