package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events an editor produces on save.
const DefaultDebounce = 500 * time.Millisecond

// Watch calls onChange whenever cfile is written, created or renamed into
// place, until ctx is cancelled. The containing directory is watched so that
// editors replacing the file are noticed too.
func Watch(ctx context.Context, cfile string, debounce time.Duration, onChange func()) error {
	abs, err := filepath.Abs(cfile)
	if err != nil {
		return fmt.Errorf("failed to resolve config path %s: %w", cfile, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	slog.Info("Watching config file", "file", abs)

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				slog.Debug("Config file event", "op", event.Op.String())
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("Config watcher error", "error", err)
		case <-timer.C:
			slog.Info("Config file changed", "file", abs)
			onChange()
		}
	}
}
