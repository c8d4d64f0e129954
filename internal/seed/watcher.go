package seed

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/rolodex/internal/models"
)

// ReloadFunc receives the freshly decoded contents of the seed file.
type ReloadFunc func(contacts []models.Contact)

const debounce = 200 * time.Millisecond

// Watch observes the seed file at path and calls fn with its decoded
// contents after each create or write, until ctx is cancelled. Bursts of
// events are coalesced. The parent directory is watched so that editors
// which replace the file via rename are still picked up.
func Watch(ctx context.Context, path string, logger *slog.Logger, fn ReloadFunc) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("seed: resolve path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("seed: new watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("seed: watch %s: %w", filepath.Dir(abs), err)
	}

	logger.Info("seed watcher: started", slog.String("path", abs))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(debounce)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("seed watcher: stopped")
			return nil

		case <-reloadCh:
			contacts, loadErr := Load(abs)
			if loadErr != nil {
				logger.Warn("seed watcher: reload failed", slog.String("error", loadErr.Error()))
				continue
			}
			logger.Debug("seed watcher: reloaded", slog.Int("contacts", len(contacts)))
			fn(contacts)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("seed watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
