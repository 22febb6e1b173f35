// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/aplane-algo/tickscript/internal/interact"
)

var (
	subjectStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))
)

// printer renders script print() output.
type printer struct {
	mu  sync.Mutex
	out io.Writer
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out}
}

// Say writes msg as seen by subject.
func (p *printer) Say(subject interact.Interactable, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.out, "%s %s\n", subjectStyle.Render("["+subject.Name()+"]"), messageStyle.Render(msg))
}

func prompt() string {
	return promptStyle.Render("> ")
}
