package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads a Store when its log file is written, created or renamed
// into place. Bursts of events are collapsed into one reload.
type Watcher struct {
	store    *Store
	debounce time.Duration
	logger   zerolog.Logger
	onReload func(*Snapshot)
}

// NewWatcher creates a watcher for store. onReload may be nil.
func NewWatcher(store *Store, debounce time.Duration, logger zerolog.Logger, onReload func(*Snapshot)) *Watcher {
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	return &Watcher{
		store:    store,
		debounce: debounce,
		logger:   logger.With().Str("component", "watcher").Logger(),
		onReload: onReload,
	}
}

// Run watches until ctx is cancelled. The directory is watched rather than
// the file so rotation by rename is seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	path := w.store.Path()
	dir := filepath.Dir(path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.logger.Info().Str("path", path).Msg("watching log source")

	base := filepath.Base(path)
	var (
		timer  *time.Timer
		fire   <-chan time.Time
		events int
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			events++
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.logger.Debug().Int("events", events).Msg("log source changed")
			events = 0
			snap, err := w.store.Reload()
			if err != nil {
				continue
			}
			if w.onReload != nil {
				w.onReload(snap)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("watch error")
		}
	}
}
