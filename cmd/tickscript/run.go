// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"context"
	"log/slog"

	"github.com/aplane-algo/tickscript/internal/event"
	"github.com/aplane-algo/tickscript/internal/interact"
	"github.com/aplane-algo/tickscript/internal/scriptcache"
	"github.com/aplane-algo/tickscript/internal/tick"
	"github.com/aplane-algo/tickscript/internal/util"
)

// run wires the dispatcher for config and drives one interaction to
// completion.
func run(ctx context.Context, config util.Config, subject, target interact.Interactable, option string, input interact.Input, out *printer) error {
	logger := util.Logger

	events := event.NewManager(logger)
	if err := events.Register(&auditListener{log: logger}); err != nil {
		return err
	}

	cache := scriptcache.New(logger)
	d, err := interact.New(interact.Config{
		Root:              config.ScriptsDir,
		Libraries:         config.Libraries,
		MaxCredits:        config.MaxCredits(),
		CreditsPerCall:    config.CreditsPerCall(),
		UniqueEntryPoints: config.UniqueEntryPoints,
	},
		interact.WithEvents(events),
		interact.WithUnitSource(cache),
		interact.WithLogger(logger),
		interact.WithOutput(out.Say),
	)
	if err != nil {
		return err
	}

	if config.Watch {
		if err := cache.Watch(ctx, d.Root(), func(paths []string) {
			logger.Info("scripts will be recompiled on next load", "files", paths)
		}); err != nil {
			logger.Warn("script watcher disabled", "error", err)
		}
	}

	clock, stopClock := newClock(config, input)
	defer stopClock()

	result, err := d.Run(ctx, subject, target, option, clock, input)
	if err != nil {
		return err
	}
	logger.Debug("interaction finished", "result", result)
	return nil
}

// newClock picks the tick source for input. A terminal prompt blocks until
// the user answers, which paces the interaction by itself; other input is
// read on a fixed tick.
func newClock(config util.Config, input interact.Input) (tick.Clock, func()) {
	if _, ok := input.(*readlineInput); ok {
		return tick.Immediate{}, func() {}
	}
	loop := tick.NewLoop(config.TickPeriod())
	return loop, loop.Stop
}

// auditListener logs every interaction and script failure.
type auditListener struct {
	log *slog.Logger
}

func (a *auditListener) Handlers() []event.Handler {
	return []event.Handler{
		event.On(event.Monitor, func(e *interact.InteractEvent) error {
			a.log.Info("interaction",
				"subject", e.Subject.Name(),
				"target", e.Target.Name(),
				"option", e.Option,
				"cancelled", e.Cancelled())
			return nil
		}, event.Named("audit-interact")),
		event.On(event.Monitor, func(e *interact.ScriptFailedEvent) error {
			a.log.Warn("script failed", "file", e.File, "function", e.Entry, "error", e.Err)
			return nil
		}, event.Named("audit-failure")),
	}
}
