// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/aplane-algo/tickscript/internal/interact"
	"github.com/aplane-algo/tickscript/internal/util"
)

// newInput returns the response source for the current terminal: a
// readline prompt on a TTY, otherwise lines from stdin. interrupt is called
// when the user presses Ctrl+C or input ends.
func newInput(interrupt func()) (interact.Input, func()) {
	if util.IsTerminal(os.Stdin) {
		in, err := newReadlineInput(interrupt)
		if err == nil {
			return in, func() { _ = in.rl.Close() }
		}
		util.Logger.Warn("failed to create readline instance, falling back to basic input", "error", err)
	}
	return newLineInput(os.Stdin, os.Stdout, interrupt), func() {}
}

// readlineInput prompts for each response with history.
type readlineInput struct {
	rl        *readline.Instance
	interrupt func()
}

func newReadlineInput(interrupt func()) (*readlineInput, error) {
	var historyFile string
	if homeDir, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(homeDir, ".tickscript_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            prompt(),
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return nil, err
	}
	return &readlineInput{rl: rl, interrupt: interrupt}, nil
}

func (r *readlineInput) Response() interface{} {
	line, err := r.rl.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			r.interrupt()
			return nil
		}
		util.Logger.Warn("error reading input", "error", err)
		return nil
	}
	return response(line)
}

// lineInput reads one response per line, e.g. from a pipe.
type lineInput struct {
	scanner   *bufio.Scanner
	prompt    io.Writer
	interrupt func()
}

func newLineInput(r io.Reader, prompt io.Writer, interrupt func()) *lineInput {
	return &lineInput{scanner: bufio.NewScanner(r), prompt: prompt, interrupt: interrupt}
}

func (l *lineInput) Response() interface{} {
	if l.prompt != nil {
		_, _ = fmt.Fprint(l.prompt, "> ")
	}
	if !l.scanner.Scan() {
		if l.interrupt != nil {
			l.interrupt()
		}
		return nil
	}
	return response(l.scanner.Text())
}

// response maps an input line to a script response; a blank line is no
// new input.
func response(line string) interface{} {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	return line
}
