// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package scripting

import "time"

const (
	// DefaultMaxCredits is the most interpreter time an environment may bank
	DefaultMaxCredits = 300 * time.Millisecond

	// DefaultCreditsPerCall is the interpreter time granted on each external call
	DefaultCreditsPerCall = 5 * time.Millisecond
)

// Ledger rations interpreter time for one environment, like a token bucket
// that refills once per external call instead of per wall-clock interval.
//
// The balance may go negative while a step is spending; once it does the
// environment is exhausted and the next step fails without running.
// A Ledger is not safe for concurrent use.
type Ledger struct {
	balance time.Duration
	max     time.Duration
	grant   time.Duration
}

// NewLedger returns a full ledger holding max credits.
func NewLedger(max, grant time.Duration) *Ledger {
	if max < 0 {
		max = 0
	}
	if grant < 0 {
		grant = 0
	}
	return &Ledger{balance: max, max: max, grant: grant}
}

// TopUp grants the per-call credits, capped at the maximum.
func (l *Ledger) TopUp() {
	l.balance += l.grant
	if l.balance > l.max {
		l.balance = l.max
	}
}

// Debit spends d. There is no floor.
func (l *Ledger) Debit(d time.Duration) {
	l.balance -= d
}

// Exhausted reports whether the balance is below zero.
func (l *Ledger) Exhausted() bool {
	return l.balance < 0
}

func (l *Ledger) Balance() time.Duration { return l.balance }

func (l *Ledger) Max() time.Duration { return l.max }

func (l *Ledger) Grant() time.Duration { return l.grant }
