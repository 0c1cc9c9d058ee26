package config

import (
	"context"
	"errors"
	"time"

	"github.com/dshills/taphold/internal/config/watcher"
)

// watchDebounce coalesces the burst of events editors produce on save.
const watchDebounce = 200 * time.Millisecond

// Watch calls fn whenever the file at path changes, until ctx is done.
// Settings are never reloaded; callers report that a restart is needed.
func Watch(ctx context.Context, path string, fn func(watcher.Event)) error {
	w := watcher.New(watcher.WithDebounce(watchDebounce))
	if err := w.Watch(path); err != nil {
		return err
	}
	w.OnChange(fn)

	err := w.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
