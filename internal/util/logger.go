// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// DebugEnv enables debug logging when set.
const DebugEnv = "TICKSCRIPT_DEBUG"

var Logger = slog.Default()

// InitLogger initializes the global logger with appropriate log level
// Set TICKSCRIPT_DEBUG=1 environment variable to enable debug logging
func InitLogger() {
	Logger = NewLogger(os.Stderr, os.Getenv(DebugEnv) != "", !SupportsColor(os.Stderr))
	slog.SetDefault(Logger)
}

// NewLogger returns a slog logger backed by a charm log handler.
func NewLogger(w io.Writer, debug, noColor bool) *slog.Logger {
	handler := log.NewWithOptions(w, log.Options{
		ReportTimestamp: false,
		Prefix:          "tickscript",
		Level:           log.InfoLevel,
	})
	if debug {
		handler.SetLevel(log.DebugLevel)
	}

	handler.SetColorProfile(termenv.ANSI256)
	if noColor {
		handler.SetColorProfile(termenv.Ascii)
	}
	return slog.New(handler)
}

// Debug logs a debug message (only shown when TICKSCRIPT_DEBUG is set)
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}
