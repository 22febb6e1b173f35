// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package scripting

import (
	"errors"
	"os"
	"time"
)

// source records when a unit was last loaded. path is empty for units
// loaded from memory, which are never stale and never reloaded.
type source struct {
	path   string
	loaded time.Time
}

func (e *Environment) track(id, path string) {
	s, ok := e.sources[id]
	if !ok {
		s = &source{}
		e.sources[id] = s
		e.order = append(e.order, id)
	}
	s.path = path
	s.loaded = e.now()
}

// Sources returns the tracked source identifiers in first-load order.
func (e *Environment) Sources() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// Stale reports whether any tracked file was modified after it was loaded.
func (e *Environment) Stale() bool {
	for _, id := range e.order {
		if changed, _ := e.sources[id].changed(); changed {
			return true
		}
	}
	return false
}

func (s *source) changed() (bool, error) {
	if s.path == "" {
		return false, nil
	}
	info, err := os.Stat(s.path)
	if err != nil {
		return false, err
	}
	return info.ModTime().After(s.loaded), nil
}

// Reload re-evaluates tracked files into the same namespace, in their
// original load order. Unless force is set, only files modified since they
// were loaded are reloaded. Bindings the new version no longer defines are
// kept. Files that can no longer be read are skipped.
//
// Reload fails with ErrReloadSuspended while a call is suspended, since the
// continuation still references the old code.
func (e *Environment) Reload(force bool) error {
	if e.Suspended() {
		return &Error{Kind: ErrReloadSuspended, Entry: e.active.entry, Source: e.active.source}
	}

	var errs []error
	for _, id := range e.Sources() {
		s := e.sources[id]
		if s.path == "" {
			continue
		}
		changed, err := s.changed()
		if err != nil {
			e.log.Warn("skipping reload of unreadable script", "source", id, "error", err)
			continue
		}
		if !force && !changed {
			continue
		}
		e.log.Debug("reloading script", "source", id, "forced", force)
		if err := e.loadFile(s.path, false); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
