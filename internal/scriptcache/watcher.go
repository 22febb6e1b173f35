// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package scriptcache

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DebounceDelay is how long the watcher waits for a burst of file events to
// settle before invalidating.
const DebounceDelay = 500 * time.Millisecond

// Watch starts a file system watcher on root and every directory below it.
// Changed .js files are invalidated after the debounce delay, and onChange
// (if not nil) is called with the invalidated paths. Directories created later
// are added to the watch. Watching stops when ctx is done.
func (c *Cache) Watch(ctx context.Context, root string, onChange func(paths []string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch scripts directory: %w", err)
	}

	c.log.Info("script watcher enabled", "root", root)

	go func() {
		defer func() { _ = watcher.Close() }()

		var (
			mu      sync.Mutex
			pending = make(map[string]struct{})
			timer   *time.Timer
		)
		flush := func() {
			mu.Lock()
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			pending = make(map[string]struct{})
			mu.Unlock()

			for _, p := range paths {
				c.Invalidate(p)
			}
			c.log.Info("scripts changed", "count", len(paths))
			if onChange != nil && len(paths) > 0 {
				onChange(paths)
			}
		}

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				if event.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						if err := watcher.Add(event.Name); err != nil {
							c.log.Warn("failed to watch new directory", "path", event.Name, "error", err)
						}
						continue
					}
				}

				if !strings.HasSuffix(event.Name, ".js") {
					continue
				}

				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					mu.Lock()
					pending[filepath.Clean(event.Name)] = struct{}{}
					mu.Unlock()

					if timer != nil {
						timer.Stop()
					}
					timer = time.AfterFunc(DebounceDelay, flush)
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				c.log.Warn("file watcher error", "error", err)
			}
		}
	}()

	return nil
}
