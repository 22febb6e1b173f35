// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package scripting

import (
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/aplane-algo/tickscript/internal/testutil"
)

func TestLoadParseErrorKeepsBindings(t *testing.T) {
	env := newEnv(t, `var kept = "yes"; function hello() { return "hi"; }`)
	before := env.Names()

	err := env.Load("broken.js", `function broken( {`)
	if !errors.Is(err, ErrParse) {
		t.Fatalf("Load() error = %v, want ErrParse", err)
	}
	if got := env.Names(); !reflect.DeepEqual(got, before) {
		t.Errorf("Names() = %v after parse error, want %v", got, before)
	}
	if got := env.Get("kept"); got != "yes" {
		t.Errorf("kept = %v, want yes", got)
	}
	for _, id := range env.Sources() {
		if id == "broken.js" {
			t.Error("broken.js tracked after parse error")
		}
	}
}

func TestLoadTopLevelPause(t *testing.T) {
	env := New()
	defer env.Close()

	err := env.Load("lib/core.js", `var before = 1; pause(); var after = 1;`)
	if !errors.Is(err, ErrLibraryContract) {
		t.Fatalf("Load() error = %v, want ErrLibraryContract", err)
	}
	if env.Get("after") != nil {
		t.Error("code after top-level pause() ran")
	}
	if env.Suspended() {
		t.Error("environment left suspended after top-level pause")
	}

	// The environment still works
	if err := env.Load("ok.js", `function ok() { return "ok"; }`); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	call, err := env.Invoke("ok")
	if err != nil || call.Result() != "ok" {
		t.Errorf("Invoke(ok) = %v, %v", call, err)
	}
}

func TestLoadShadowing(t *testing.T) {
	t.Run("later definitions shadow", func(t *testing.T) {
		env := newEnv(t, `function talkTo() { return "library"; }`)
		if err := env.Load("npc.js", `function talkTo() { return "npc"; }`); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		call, err := env.Invoke("talkTo")
		if err != nil {
			t.Fatalf("Invoke() error = %v", err)
		}
		if call.Result() != "npc" {
			t.Errorf("Result() = %v, want npc", call.Result())
		}
		if call.Source() != "npc.js" {
			t.Errorf("Source() = %v, want npc.js", call.Source())
		}
	})

	t.Run("unique entry points", func(t *testing.T) {
		env := newEnv(t, `function talkTo() { return "library"; }`, WithUniqueEntryPoints())
		err := env.Load("npc.js", `var ran = true; function talkTo() { return "npc"; }`)
		if !errors.Is(err, ErrEntryCollision) {
			t.Fatalf("Load() error = %v, want ErrEntryCollision", err)
		}
		if env.Get("ran") != nil {
			t.Error("colliding unit was executed")
		}
		var scriptErr *Error
		if errors.As(err, &scriptErr) && scriptErr.Entry != "talkTo" {
			t.Errorf("collision entry = %q, want talkTo", scriptErr.Entry)
		}
	})
}

func TestSetOverwrites(t *testing.T) {
	env := New()
	defer env.Close()

	env.Set("player", "alice")
	env.Set("player", "bob")
	if got := env.Get("player"); got != "bob" {
		t.Errorf("player = %v, want bob", got)
	}
	if err := env.Load("test.js", `function who() { return player; }`); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	call, _ := env.Invoke("who")
	if call.Result() != "bob" {
		t.Errorf("who() = %v, want bob", call.Result())
	}
}

func TestReloadUnchangedIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteScript(t, dir, "core.js", `
		var loads = (typeof loads === "undefined" ? 0 : loads) + 1;
		function hello() { return "hi"; }
	`)

	env := New()
	defer env.Close()
	if err := env.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	before := env.Names()

	if env.Stale() {
		t.Fatal("Stale() = true right after load")
	}
	if err := env.Reload(false); err != nil {
		t.Fatalf("Reload(false) error = %v", err)
	}
	if got := env.Names(); !reflect.DeepEqual(got, before) {
		t.Errorf("Names() = %v, want %v", got, before)
	}
	if got := env.Get("loads"); got != int64(1) {
		t.Errorf("loads = %v, want 1", got)
	}

	if err := env.Reload(true); err != nil {
		t.Fatalf("Reload(true) error = %v", err)
	}
	if got := env.Get("loads"); got != int64(2) {
		t.Errorf("loads after forced reload = %v, want 2", got)
	}
}

func TestReloadChangedKeepsStaleBindings(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteScript(t, dir, "npc.js", `
		function talkTo() { return "v1"; }
		function removedLater() { return "old"; }
	`)

	env := New()
	defer env.Close()
	if err := env.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if err := os.WriteFile(path, []byte(`function talkTo() { return "v2"; }`), 0o644); err != nil {
		t.Fatal(err)
	}
	testutil.Touch(t, path, 2*time.Hour)

	if !env.Stale() {
		t.Fatal("Stale() = false after modification")
	}
	if err := env.Reload(false); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	call, err := env.Invoke("talkTo")
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if call.Result() != "v2" {
		t.Errorf("talkTo() = %v, want v2", call.Result())
	}
	if _, err := env.Callable("removedLater"); err != nil {
		t.Errorf("removedLater was dropped by reload: %v", err)
	}
}

func TestReloadDuringSuspension(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteScript(t, dir, "npc.js", `function talkTo() { return pause(); }`)

	env := New()
	defer env.Close()
	if err := env.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	call, err := env.Invoke("talkTo")
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	if err := env.Reload(true); !errors.Is(err, ErrReloadSuspended) {
		t.Fatalf("Reload() error = %v, want ErrReloadSuspended", err)
	}

	_ = call.Resume("done")
	if call.Result() != "done" {
		t.Errorf("Result() = %v, want done", call.Result())
	}
	if err := env.Reload(true); err != nil {
		t.Errorf("Reload() after finish error = %v", err)
	}
}

func TestReloadSkipsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteScript(t, dir, "gone.js", `function gone() {}`)

	env := New()
	defer env.Close()
	if err := env.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := env.Reload(true); err != nil {
		t.Errorf("Reload() error = %v, want nil", err)
	}
	if _, err := env.Callable("gone"); err != nil {
		t.Errorf("gone() dropped: %v", err)
	}
}

func TestCompileFunctions(t *testing.T) {
	u, err := Compile("lib.js", `
		function a() {}
		var b = function () {};
		function c() { function nested() {} }
	`)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if want := []string{"a", "c"}; !reflect.DeepEqual(u.Functions, want) {
		t.Errorf("Functions = %v, want %v", u.Functions, want)
	}
}
