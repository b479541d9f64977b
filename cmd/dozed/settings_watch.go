package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const settingsReloadDebounce = 250 * time.Millisecond

// runSettingsWatcher reloads the settings store when its file changes on disk
// and reports the new values to the daemon loop as SettingsReloaded.
//
// The parent directory is watched rather than the file itself so that
// editors and our own rename-based writes are both observed.
func runSettingsWatcher(ctx context.Context, store *SettingsStore, events chan<- Event, logger *slog.Logger) error {
	path := store.Path()
	if path == "" {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create settings watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Info("watching settings file", "path", path)

	var timer *time.Timer
	var timerCh <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("settings file event", "op", ev.Op.String())

			if timer == nil {
				timer = time.NewTimer(settingsReloadDebounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(settingsReloadDebounce)
			}
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			if err := store.Reload(); err != nil {
				logger.Error("settings reload failed", "error", err)
				continue
			}
			s := store.Snapshot()
			logger.Info("settings reloaded", "settings", fmt.Sprintf("%+v", s))

			select {
			case events <- SettingsReloaded{Settings: s}:
			case <-ctx.Done():
				return nil
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("settings watcher error", "error", err)
		}
	}
}
