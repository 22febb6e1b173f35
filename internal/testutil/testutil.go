// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package testutil provides reusable test infrastructure and utilities.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ScriptTree creates a scripts directory from a map of slash-separated
// relative paths to file contents and returns its root. Modification times
// are set an hour in the past so that later writes register as changes.
func ScriptTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for rel, src := range files {
		WriteScript(t, root, rel, src)
	}
	return root
}

// WriteScript writes src to root/rel, creating parent directories, and
// returns the full path.
func WriteScript(t *testing.T, root, rel, src string) string {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create script directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatalf("Failed to set script mtime: %v", err)
	}
	return path
}

// Touch moves a file's modification time forward by d.
func Touch(t *testing.T, path string, d time.Duration) {
	t.Helper()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat %s: %v", path, err)
	}
	mtime := info.ModTime().Add(d)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("Failed to touch %s: %v", path, err)
	}
}

// TempFile creates a temporary file with the given content, returning the path.
// The file is automatically cleaned up when the test completes.
func TempFile(t *testing.T, content []byte) string {
	t.Helper()

	tmpFile, err := os.CreateTemp(t.TempDir(), "testfile-*")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	if _, err := tmpFile.Write(content); err != nil {
		_ = tmpFile.Close()
		t.Fatalf("Failed to write temp file: %v", err)
	}

	_ = tmpFile.Close()
	return tmpFile.Name()
}

// AssertError checks that an error matches expected criteria.
func AssertError(t *testing.T, err error, shouldError bool, msgContains string) {
	t.Helper()

	if !shouldError {
		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
		return
	}
	if err == nil {
		t.Error("Expected an error but got nil")
		return
	}
	if msgContains != "" && !strings.Contains(err.Error(), msgContains) {
		t.Errorf("Error message %q should contain %q", err.Error(), msgContains)
	}
}
