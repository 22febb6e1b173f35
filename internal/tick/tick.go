// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package tick provides the host clocks that pace suspended interactions.
package tick

import (
	"context"
	"sync"
	"time"
)

// DefaultPeriod is the world tick length.
const DefaultPeriod = 600 * time.Millisecond

// Clock blocks until the next host tick.
type Clock interface {
	Wait(ctx context.Context) error
}

// Loop is a Clock driven by a time.Ticker.
type Loop struct {
	ticker *time.Ticker
	count  uint64
	mu     sync.Mutex
}

// NewLoop starts a ticker with the given period. A period <= 0 uses
// DefaultPeriod. Stop must be called to release the ticker.
func NewLoop(period time.Duration) *Loop {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Loop{ticker: time.NewTicker(period)}
}

// Wait blocks until the next tick or until ctx is done.
func (l *Loop) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ticker.C:
		l.mu.Lock()
		l.count++
		l.mu.Unlock()
		return nil
	}
}

// Count returns the number of ticks observed by Wait.
func (l *Loop) Count() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

func (l *Loop) Stop() { l.ticker.Stop() }

// Manual is a Clock advanced by the caller. Each Advance releases one Wait.
// The zero value is not usable; use NewManual.
type Manual struct {
	ticks chan struct{}
	mu    sync.Mutex
	count uint64
}

// NewManual returns a manual clock that can buffer up to backlog ticks that
// nobody is waiting for yet.
func NewManual(backlog int) *Manual {
	if backlog < 0 {
		backlog = 0
	}
	return &Manual{ticks: make(chan struct{}, backlog)}
}

// Advance emits n ticks. It blocks while the backlog is full.
func (m *Manual) Advance(n int) {
	for i := 0; i < n; i++ {
		m.ticks <- struct{}{}
	}
}

func (m *Manual) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.ticks:
		m.mu.Lock()
		m.count++
		m.mu.Unlock()
		return nil
	}
}

// Count returns the number of ticks consumed by Wait.
func (m *Manual) Count() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// Immediate is a Clock whose ticks are always due. It suits single-step
// drivers that pace themselves, such as a prompt waiting for input.
type Immediate struct{}

func (Immediate) Wait(ctx context.Context) error { return ctx.Err() }

var (
	_ Clock = (*Loop)(nil)
	_ Clock = (*Manual)(nil)
	_ Clock = Immediate{}
)
