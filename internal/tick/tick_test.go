// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package tick

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoopTicks(t *testing.T) {
	l := NewLoop(time.Millisecond)
	defer l.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < 3; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	if l.Count() != 3 {
		t.Errorf("Count() = %d, want 3", l.Count())
	}
}

func TestLoopCancelled(t *testing.T) {
	l := NewLoop(time.Hour)
	defer l.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
}

func TestManual(t *testing.T) {
	m := NewManual(2)
	m.Advance(2)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := m.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if err := m.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() without tick error = %v, want deadline exceeded", err)
	}
	if m.Count() != 2 {
		t.Errorf("Count() = %d, want 2", m.Count())
	}
}

func TestImmediate(t *testing.T) {
	if err := (Immediate{}).Wait(context.Background()); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (Immediate{}).Wait(ctx); err == nil {
		t.Error("Wait() on cancelled context succeeded")
	}
}
