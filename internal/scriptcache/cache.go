// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package scriptcache keeps compiled script units so that every interaction
// does not re-parse the shared libraries. Entries are keyed by path and
// revalidated against the file's modification time and size, and a watcher
// can drop them eagerly when files change on disk.
package scriptcache

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aplane-algo/tickscript/internal/scripting"
)

type entry struct {
	modTime time.Time
	size    int64
	unit    *scripting.Unit
}

// Stats counts cache lookups.
type Stats struct {
	Hits          int
	Misses        int
	Invalidations int
}

// Cache is a UnitSource shared by many environments. It is safe for
// concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	stats   Stats
	log     *slog.Logger
}

// New creates an empty cache. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		entries: make(map[string]*entry),
		log:     logger,
	}
}

// Unit returns the compiled unit for path, compiling it if the file changed
// since it was cached.
func (c *Cache) Unit(path string) (*scripting.Unit, error) {
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}

	c.mu.Lock()
	if e, ok := c.entries[path]; ok && e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
		c.stats.Hits++
		c.mu.Unlock()
		return e.unit, nil
	}
	c.stats.Misses++
	c.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	unit, err := scripting.Compile(path, string(data))
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[path] = &entry{modTime: info.ModTime(), size: info.Size(), unit: unit}
	c.mu.Unlock()

	c.log.Debug("compiled script", "path", path)
	return unit, nil
}

// Invalidate drops the cached unit for path.
func (c *Cache) Invalidate(path string) {
	path = filepath.Clean(path)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[path]; ok {
		delete(c.entries, path)
		c.stats.Invalidations++
	}
}

// Len returns the number of cached units.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Compile-time interface check
var _ scripting.UnitSource = (*Cache)(nil)
