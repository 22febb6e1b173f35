// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package interact turns (subject, target, option) interactions into script
// calls and drives them tick by tick until they finish.
package interact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/aplane-algo/tickscript/internal/event"
	"github.com/aplane-algo/tickscript/internal/jsapi"
	"github.com/aplane-algo/tickscript/internal/scripting"
	"github.com/aplane-algo/tickscript/internal/tick"
)

// DefaultLibraries are loaded, in order, before every interaction script.
var DefaultLibraries = []string{"lib/core.js", "lib/dialogue.js"}

// Config holds the dispatcher settings.
type Config struct {
	// Root is the scripts directory. It must exist.
	Root string
	// Libraries are paths relative to Root. Nil means DefaultLibraries.
	Libraries []string
	// MaxCredits and CreditsPerCall size each interaction's ledger. Zero
	// values use the scripting defaults.
	MaxCredits     time.Duration
	CreditsPerCall time.Duration
	// UniqueEntryPoints rejects scripts redefining an existing function.
	UniqueEntryPoints bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithEvents publishes InteractEvent and ScriptFailedEvent to m.
func WithEvents(m *event.Manager) Option {
	return func(d *Dispatcher) { d.events = m }
}

// WithUnitSource shares compiled scripts between interactions.
func WithUnitSource(src scripting.UnitSource) Option {
	return func(d *Dispatcher) { d.units = src }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// WithOutput sets where script print() output goes. The default is stdout.
func WithOutput(fn func(subject Interactable, msg string)) Option {
	return func(d *Dispatcher) { d.output = fn }
}

// Dispatcher resolves interactions to scripts and runs them.
// Each interaction gets a fresh Environment; environments are never shared.
type Dispatcher struct {
	root      string
	libraries []string
	maxCred   time.Duration
	grant     time.Duration
	unique    bool

	units  scripting.UnitSource
	events *event.Manager
	output func(Interactable, string)
	log    *slog.Logger
}

// New creates a dispatcher. It fails when the scripts root does not exist.
func New(cfg Config, opts ...Option) (*Dispatcher, error) {
	info, err := os.Stat(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("scripts directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scripts directory %s is not a directory", cfg.Root)
	}

	d := &Dispatcher{
		root:      cfg.Root,
		libraries: cfg.Libraries,
		maxCred:   cfg.MaxCredits,
		grant:     cfg.CreditsPerCall,
		unique:    cfg.UniqueEntryPoints,
		log:       slog.Default(),
	}
	if d.libraries == nil {
		d.libraries = DefaultLibraries
	}
	if d.maxCred <= 0 {
		d.maxCred = scripting.DefaultMaxCredits
	}
	if d.grant <= 0 {
		d.grant = scripting.DefaultCreditsPerCall
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Root returns the scripts directory.
func (d *Dispatcher) Root() string { return d.root }

// Interaction is one running interaction script. ID correlates its log
// lines and events.
type Interaction struct {
	ID      ulid.ULID
	Subject Interactable
	Target  Interactable
	Option  string
	File    string
	Entry   string

	d    *Dispatcher
	env  *scripting.Environment
	call *scripting.Call
}

// Begin resolves and starts an interaction. The returned interaction is
// either finished or suspended waiting for Step. Errors wrap ErrNotHandled
// when no script handles the interaction, or are classified
// *scripting.Error values when the script fails.
func (d *Dispatcher) Begin(subject, target Interactable, option string) (*Interaction, error) {
	id := ulid.Make()
	if d.events != nil {
		ev := &InteractEvent{ID: id, Subject: subject, Target: target, Option: option}
		d.events.Call(ev)
		if ev.Cancelled() {
			return nil, fmt.Errorf("%w: cancelled by listener", ErrNotHandled)
		}
	}

	file, err := d.Resolve(target, option)
	if err != nil {
		d.log.Debug("interaction not handled", "target", target.Name(), "option", option)
		return nil, err
	}

	it := &Interaction{
		ID:      id,
		Subject: subject,
		Target:  target,
		Option:  option,
		File:    file,
		Entry:   EntryName(option),
		d:       d,
	}

	if f, ok := target.(Facer); ok {
		f.Face(subject)
	}
	if f, ok := subject.(Facer); ok {
		f.Face(target)
	}

	env, err := d.environment(it)
	if err != nil {
		return nil, d.failed(it, err)
	}
	it.env = env

	if err := d.load(env, file); err != nil {
		env.Close()
		return nil, d.failed(it, err)
	}

	if _, err := env.Callable(it.Entry); err != nil {
		env.Close()
		d.log.Debug("script has no entry point", "file", file, "function", it.Entry)
		return nil, fmt.Errorf("%w: %s defines no %s()", ErrNotHandled, file, it.Entry)
	}

	call, err := env.Invoke(it.Entry, subject, target)
	if err != nil {
		env.Close()
		return nil, d.failed(it, err)
	}
	it.call = call
	if err := call.Err(); err != nil {
		env.Close()
		return nil, d.failed(it, err)
	}
	return it, nil
}

func (d *Dispatcher) environment(it *Interaction) (*scripting.Environment, error) {
	opts := []scripting.Option{
		scripting.WithLedger(scripting.NewLedger(d.maxCred, d.grant)),
		scripting.WithLogger(d.log),
	}
	if d.units != nil {
		opts = append(opts, scripting.WithUnitSource(d.units))
	}
	if d.unique {
		opts = append(opts, scripting.WithUniqueEntryPoints())
	}

	env := scripting.New(opts...)
	env.Set("player", it.Subject)
	env.Set("subject", it.Subject)
	env.Set("target", it.Target)

	var output func(string)
	if d.output != nil {
		subject := it.Subject
		output = func(msg string) { d.output(subject, msg) }
	}
	api := jsapi.NewAPI(output, d.log.With("source", it.File))
	if err := api.RegisterAll(env.Runtime()); err != nil {
		env.Close()
		return nil, err
	}
	return env, nil
}

// load evaluates the shared libraries and then file. Libraries that do not
// exist are skipped.
func (d *Dispatcher) load(env *scripting.Environment, file string) error {
	for _, lib := range d.libraries {
		path := filepath.Join(d.root, filepath.FromSlash(lib))
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			d.log.Warn("shared library missing", "path", path)
			continue
		}
		if err := env.LoadFile(path); err != nil {
			return err
		}
	}
	return env.LoadFile(file)
}

// failed logs err with the interaction's context and publishes a
// ScriptFailedEvent. It returns err.
func (d *Dispatcher) failed(it *Interaction, err error) error {
	attrs := []any{
		"id", it.ID.String(),
		"file", it.File,
		"function", it.Entry,
		"target", it.Target.Name(),
		"error", err,
	}
	if kind := scripting.KindOf(err); kind != nil {
		attrs = append(attrs, "kind", kind.Error())
	}
	d.log.Error("interaction failed", attrs...)

	if d.events != nil {
		d.events.Call(&ScriptFailedEvent{
			ID:      it.ID,
			Subject: it.Subject,
			Target:  it.Target,
			Option:  it.Option,
			File:    it.File,
			Entry:   it.Entry,
			Err:     err,
		})
	}
	return err
}

// Step resumes the suspended script with response, running it for one tick.
// A nil response means no new input.
func (it *Interaction) Step(response interface{}) error {
	if err := it.call.Resume(response); err != nil {
		return err
	}
	if err := it.call.Err(); err != nil {
		it.env.Close()
		return it.d.failed(it, err)
	}
	if it.call.Finished() {
		it.env.Close()
	}
	return nil
}

// Done reports whether the script finished or failed.
func (it *Interaction) Done() bool { return it.call.Finished() }

// Suspended reports whether the script is waiting for the next Step.
func (it *Interaction) Suspended() bool { return it.call.Suspended() }

// Err returns the script failure, if any.
func (it *Interaction) Err() error { return it.call.Err() }

// Result returns the entry point's return value once finished. The host
// does not interpret it.
func (it *Interaction) Result() interface{} { return it.call.Result() }

// Steps returns how many invoke and resume steps the script has run.
func (it *Interaction) Steps() int { return it.call.Steps() }

// Close abandons the interaction. Any pending continuation is discarded
// without running more script code.
func (it *Interaction) Close() { it.env.Close() }

// Input supplies the response for each tick. Response returns nil when
// there is no new input.
type Input interface {
	Response() interface{}
}

// InputFunc adapts a function to Input.
type InputFunc func() interface{}

func (f InputFunc) Response() interface{} { return f() }

// Run begins an interaction and resumes it once per tick of clock, feeding
// it input, until it finishes. A nil input supplies no responses. When ctx
// ends first the interaction is abandoned and the context error returned.
func (d *Dispatcher) Run(ctx context.Context, subject, target Interactable, option string, clock tick.Clock, input Input) (interface{}, error) {
	it, err := d.Begin(subject, target, option)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	for !it.Done() {
		if err := clock.Wait(ctx); err != nil {
			return nil, err
		}
		var response interface{}
		if input != nil {
			response = input.Response()
		}
		if err := it.Step(response); err != nil {
			return nil, err
		}
	}
	return it.Result(), nil
}
