// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package interact

import (
	"errors"

	"github.com/oklog/ulid/v2"

	"github.com/aplane-algo/tickscript/internal/event"
)

// ErrNotHandled means no script handles the interaction. It is an expected
// outcome; callers fall back to their default behaviour.
var ErrNotHandled = errors.New("interaction not handled")

// InteractEvent is published before an interaction is resolved. Cancelling
// it makes the interaction not handled.
type InteractEvent struct {
	event.CancellableBase
	ID      ulid.ULID
	Subject Interactable
	Target  Interactable
	Option  string
}

// ScriptFailedEvent is published when an interaction script fails to load
// or run.
type ScriptFailedEvent struct {
	event.Base
	ID      ulid.ULID
	Subject Interactable
	Target  Interactable
	Option  string
	File    string
	Entry   string
	Err     error
}
