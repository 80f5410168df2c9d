package store

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
)

// Watch reloads the store whenever the file at path is changed by another process.
// Subsequent changes within the delay are collapsed into a single reload.
// This blocks until the context is cancelled, run it in a separate goroutine.
func Watch(ctx context.Context, s *Store, path string, delay time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cannot create watcher: %w", err)
	}
	defer watcher.Close()

	path = filepath.Clean(path)
	// Watch the directory rather than the file, atomic saves replace the file itself
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("cannot add directory %q to watcher: %w", dir, err)
	}
	s.logger.Debug("Watching customer storage", "path", path)

	debouncer := debounce.New(delay)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			debouncer(func() {
				if ctx.Err() != nil {
					return
				}
				if err := s.Reload(ctx); err != nil {
					s.logger.Warn("Could not reload customers after file change", "error", err, "path", path)
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("Storage watcher error", "error", err)
		case <-ctx.Done():
			return nil
		}
	}
}
