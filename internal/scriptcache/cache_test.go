// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package scriptcache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aplane-algo/tickscript/internal/scripting"
)

func writeFile(t *testing.T, path, src string, mtime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func TestCacheHitsAndRevalidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lib", "core.js")
	past := time.Now().Add(-time.Hour)
	writeFile(t, path, `function a() {}`, past)

	c := New(nil)
	first, err := c.Unit(path)
	if err != nil {
		t.Fatalf("Unit() error = %v", err)
	}
	second, err := c.Unit(path)
	if err != nil {
		t.Fatalf("Unit() error = %v", err)
	}
	if first != second {
		t.Error("unchanged file was recompiled")
	}
	if got := c.Stats(); got.Hits != 1 || got.Misses != 1 {
		t.Errorf("Stats() = %+v, want 1 hit and 1 miss", got)
	}

	writeFile(t, path, `function a() {} function b() {}`, past.Add(time.Minute))
	third, err := c.Unit(path)
	if err != nil {
		t.Fatalf("Unit() error = %v", err)
	}
	if third == first {
		t.Error("modified file served from cache")
	}
	if len(third.Functions) != 2 {
		t.Errorf("Functions = %v, want [a b]", third.Functions)
	}
}

func TestCacheErrors(t *testing.T) {
	dir := t.TempDir()
	c := New(nil)

	if _, err := c.Unit(filepath.Join(dir, "missing.js")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Unit(missing) error = %v, want not-exist", err)
	}

	bad := filepath.Join(dir, "bad.js")
	writeFile(t, bad, `function (`, time.Now())
	if _, err := c.Unit(bad); !errors.Is(err, scripting.ErrParse) {
		t.Errorf("Unit(bad) error = %v, want ErrParse", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestCacheInvalidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "npc.js")
	writeFile(t, path, `function talkTo() {}`, time.Now())

	c := New(nil)
	if _, err := c.Unit(path); err != nil {
		t.Fatalf("Unit() error = %v", err)
	}
	c.Invalidate(path)
	c.Invalidate(path)
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Invalidate, want 0", c.Len())
	}
	if got := c.Stats().Invalidations; got != 1 {
		t.Errorf("Invalidations = %d, want 1", got)
	}
}

func TestCacheAsEnvironmentSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "npc.js")
	writeFile(t, path, `function talkTo() { return "cached"; }`, time.Now().Add(-time.Hour))

	c := New(nil)
	for i := 0; i < 2; i++ {
		env := scripting.New(scripting.WithUnitSource(c))
		if err := env.LoadFile(path); err != nil {
			t.Fatalf("LoadFile() error = %v", err)
		}
		call, err := env.Invoke("talkTo")
		if err != nil {
			t.Fatalf("Invoke() error = %v", err)
		}
		if call.Result() != "cached" {
			t.Errorf("Result() = %v, want cached", call.Result())
		}
		env.Close()
	}
	if got := c.Stats(); got.Hits != 1 || got.Misses != 1 {
		t.Errorf("Stats() = %+v, want 1 hit and 1 miss", got)
	}
}

func TestWatchInvalidatesChangedScripts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "interaction", "npc", "doomsayer.js")
	writeFile(t, path, `function talkTo() {}`, time.Now())

	c := New(nil)
	if _, err := c.Unit(path); err != nil {
		t.Fatalf("Unit() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan []string, 1)
	if err := c.Watch(ctx, dir, func(paths []string) {
		select {
		case changed <- paths:
		default:
		}
	}); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := os.WriteFile(path, []byte(`function talkTo() { return 1; }`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case paths := <-changed:
		if len(paths) != 1 || paths[0] != filepath.Clean(path) {
			t.Errorf("changed paths = %v, want [%s]", paths, path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the change")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after change, want 0", c.Len())
	}
}

func TestWatchMissingRoot(t *testing.T) {
	c := New(nil)
	if err := c.Watch(context.Background(), filepath.Join(t.TempDir(), "nope"), nil); err == nil {
		t.Error("Watch() on missing root succeeded")
	}
}
