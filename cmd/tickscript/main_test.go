// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/aplane-algo/tickscript/internal/interact"
	"github.com/aplane-algo/tickscript/internal/testutil"
	"github.com/aplane-algo/tickscript/internal/tick"
	"github.com/aplane-algo/tickscript/internal/util"
)

func TestSplitTags(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"npc,mob", []string{"npc", "mob"}},
		{" npc , mob ,", []string{"npc", "mob"}},
		{"", nil},
	}
	for _, tt := range tests {
		if got := splitTags(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitTags(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLineInput(t *testing.T) {
	interrupted := false
	in := newLineInput(strings.NewReader("continue\n\n  2  \n"), nil, func() { interrupted = true })

	var got []interface{}
	for i := 0; i < 4; i++ {
		got = append(got, in.Response())
	}
	want := []interface{}{"continue", nil, "2", nil}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("responses = %v, want %v", got, want)
	}
	if !interrupted {
		t.Error("end of input did not interrupt")
	}
}

func testConfig(t *testing.T, files map[string]string) util.Config {
	t.Helper()
	config := util.DefaultConfig()
	config.ScriptsDir = testutil.ScriptTree(t, files)
	config.TickMs = 1
	return config
}

func TestRun(t *testing.T) {
	config := testConfig(t, map[string]string{
		"lib/core.js":     `function say(who, msg) { print(msg); }`,
		"lib/dialogue.js": `function ask(who, q) { say(who, q); return choose(q, ["Yes", "No"]); }`,
		"interaction/npc/doomsayer.js": `
			function talkTo(subject, target) {
				var pick = ask(target, "Repent?");
				say(subject, pick === 1 ? "I repent" : "Never");
			}
		`,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	input := newLineInput(strings.NewReader("\nmaybe\n1\n"), nil, cancel)
	err := run(ctx, config, interact.NewEntity("player"), interact.NewEntity("doomsayer", "npc", "mob"), "Talk-to", input, newPrinter(&out))
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	for _, want := range []string{"Repent?", "1. Yes", "2. No", "I repent"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output %q missing %q", out.String(), want)
		}
	}
}

func TestRunNotHandled(t *testing.T) {
	config := testConfig(t, map[string]string{
		"interaction/npc/doomsayer.js": `function talkTo() {}`,
	})
	config.Watch = false

	err := run(context.Background(), config, interact.NewEntity("player"), interact.NewEntity("doomsayer", "npc"), "Attack", nil, newPrinter(&bytes.Buffer{}))
	if !errors.Is(err, interact.ErrNotHandled) {
		t.Errorf("run() error = %v, want ErrNotHandled", err)
	}
}

func TestRunInputExhausted(t *testing.T) {
	config := testConfig(t, map[string]string{
		"interaction/npc/doomsayer.js": `function talkTo() { while (pause() !== "bye") {} }`,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	input := newLineInput(strings.NewReader("hello\n"), nil, cancel)
	err := run(ctx, config, interact.NewEntity("player"), interact.NewEntity("doomsayer", "npc"), "Talk-to", input, newPrinter(&bytes.Buffer{}))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("run() error = %v, want context.Canceled", err)
	}
}

func TestMissingScriptsDir(t *testing.T) {
	config := util.DefaultConfig()
	config.ScriptsDir = t.TempDir() + "/missing"

	if err := run(context.Background(), config, interact.NewEntity("player"), interact.NewEntity("x"), "Use", nil, newPrinter(&bytes.Buffer{})); err == nil {
		t.Error("run() with missing scripts dir succeeded")
	}
}

func TestExampleWorld(t *testing.T) {
	config, err := util.LoadConfig(filepath.Join("..", "..", "examples", "world"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	config.Watch = false
	config.TickMs = 1

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	doomsayer := interact.NewEntity("doomsayer", "npc", "mob")
	input := newLineInput(strings.NewReader("1\n\n"), nil, cancel)
	if err := run(ctx, config, interact.NewEntity("player"), doomsayer, "Talk-to", input, newPrinter(&out)); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(out.String(), "Then heed the warning signs.") {
		t.Errorf("output = %q", out.String())
	}
	if doomsayer.Get("warned") != true {
		t.Error("doomsayer did not remember the warning")
	}
}

func TestNewClock(t *testing.T) {
	config := util.DefaultConfig()

	clock, stop := newClock(config, &readlineInput{})
	stop()
	if _, ok := clock.(tick.Immediate); !ok {
		t.Errorf("prompt input clock = %T, want tick.Immediate", clock)
	}

	clock, stop = newClock(config, newLineInput(strings.NewReader(""), nil, nil))
	defer stop()
	if _, ok := clock.(*tick.Loop); !ok {
		t.Errorf("line input clock = %T, want *tick.Loop", clock)
	}

	clock, stop = newClock(config, nil)
	defer stop()
	if _, ok := clock.(*tick.Loop); !ok {
		t.Errorf("nil input clock = %T, want *tick.Loop", clock)
	}
}
