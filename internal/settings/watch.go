package settings

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the tmp-write and rename events of one atomic save.
const watchDebounce = 200 * time.Millisecond

// Watch reloads the layers whenever another process rewrites one of the
// layer files. It blocks until ctx is cancelled. onReload, when non-nil, is
// called after every reload attempt.
func (m *Manager) Watch(ctx context.Context, onReload func(error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	// Atomic writes replace the file, so watch the directory.
	if err := w.Add(m.opts.Dir); err != nil {
		return fmt.Errorf("watching %s: %w", m.opts.Dir, err)
	}

	watched := map[string]bool{}
	for _, name := range layerFiles {
		watched[name] = true
	}

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Base(ev.Name)] {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			timer.Reset(watchDebounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.log.Warn().Err(err).Msg("settings watcher error")

		case <-timer.C:
			err := m.Reload()
			if err != nil {
				m.log.Error().Err(err).Msg("reloading settings")
			} else {
				m.log.Debug().Msg("settings reloaded from disk")
			}
			if onReload != nil {
				onReload(err)
			}
		}
	}
}
