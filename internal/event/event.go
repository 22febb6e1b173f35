// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package event is a priority-ordered listener registry for world events.
//
// Listeners register handlers explicitly; each handler names the event type
// it accepts, a priority tier, and whether it wants events that are already
// consumed or cancelled. Dispatch walks tiers from Lowest to Monitor and,
// within a tier, handlers in registration order.
package event

// Event is anything that can be broadcast.
type Event interface {
	Consumed() bool
}

// Cancellable events can be vetoed by a handler.
type Cancellable interface {
	Event
	Cancelled() bool
	SetCancelled(bool)
}

// Base is embeddable event state.
type Base struct {
	consumed bool
}

func (b *Base) Consumed() bool { return b.consumed }

// Consume marks the event as handled; later handlers flagged SkipConsumed
// do not see it.
func (b *Base) Consume() { b.consumed = true }

// CancellableBase is embeddable state for cancellable events.
type CancellableBase struct {
	Base
	cancelled bool
}

func (b *CancellableBase) Cancelled() bool { return b.cancelled }

func (b *CancellableBase) SetCancelled(c bool) { b.cancelled = c }

// Priority is a dispatch tier. Lower tiers run first, so higher tiers get
// the final say.
type Priority int

const (
	Lowest Priority = iota
	Low
	Normal
	High
	Highest
	// Monitor handlers observe the outcome and should not modify the event
	Monitor
)

var priorities = []Priority{Lowest, Low, Normal, High, Highest, Monitor}

func (p Priority) valid() bool { return p >= Lowest && p <= Monitor }

func (p Priority) String() string {
	switch p {
	case Lowest:
		return "LOWEST"
	case Low:
		return "LOW"
	case Normal:
		return "NORMAL"
	case High:
		return "HIGH"
	case Highest:
		return "HIGHEST"
	case Monitor:
		return "MONITOR"
	default:
		return "UNKNOWN"
	}
}
