package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/flow"
)

// DefaultWatchDebounce is how long Watch waits after the last change event
// before reloading.
const DefaultWatchDebounce = 200 * time.Millisecond

// WatchOption configures Watch.
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
}

// WithDebounce sets the reload debounce interval.
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// Watch calls fn with the reloaded settings each time the file at path
// changes, until ctx is done. Files that fail to load are logged and
// skipped. Watch returns once the watcher is installed; it returns an
// error only if the watcher could not be set up.
//
// The directory is watched rather than the file so editors that replace
// the file by renaming are followed.
func Watch(ctx context.Context, path string, fn func(Settings), opts ...WatchOption) error {
	o := watchOptions{debounce: DefaultWatchDebounce}
	for _, opt := range opts {
		opt(&o)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("config: watch %s: %w", path, err)
	}

	go watchLoop(ctx, w, path, o.debounce, fn)
	return nil
}

func watchLoop(ctx context.Context, w *fsnotify.Watcher, path string, debounce time.Duration, fn func(Settings)) {
	defer w.Close()

	absPath, _ := filepath.Abs(path)
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if evAbs, _ := filepath.Abs(ev.Name); evAbs != absPath {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			fire = timer.C

		case <-fire:
			timer, fire = nil, nil
			s, err := Load(path)
			if err != nil {
				flow.Logger().Warn("config: reload failed, keeping previous settings", "path", path, "err", err)
				continue
			}
			flow.Logger().Info("config: settings reloaded", "path", path)
			fn(s)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			flow.Logger().Warn("config: watch error", "path", path, "err", err)
		}
	}
}
