// Package notify lets the scheduler wait out an empty-library backoff while
// still reacting promptly when files land in the watched directory.
package notify

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"mural/internal/logging"
)

// Waiter blocks until dir changes, timeout elapses, or ctx is cancelled. The
// bool reports whether a filesystem change cut the wait short.
type Waiter interface {
	Wait(ctx context.Context, dir string, timeout time.Duration) (bool, error)
}

// Detect picks the best available strategy once at startup. Inotify descriptor
// exhaustion or an unsupported filesystem degrades to plain sleeping.
func Detect(logger *slog.Logger) Waiter {
	log := logging.NewComponentLogger(logger, "notify")
	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("filesystem notifications unavailable, falling back to timed waits", logging.Error(err))
		return SleepWaiter{}
	}
	w.Close()
	return &FSWaiter{logger: log}
}

// SleepWaiter waits out the full timeout with no change detection.
type SleepWaiter struct{}

func (SleepWaiter) Wait(ctx context.Context, _ string, timeout time.Duration) (bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-timer.C:
		return false, nil
	}
}

// FSWaiter watches dir and its immediate subdirectories with fsnotify and
// returns as soon as anything changes. A watcher setup failure degrades to a
// plain sleep for that wait rather than failing the cycle.
type FSWaiter struct {
	logger *slog.Logger
}

func (f *FSWaiter) Wait(ctx context.Context, dir string, timeout time.Duration) (bool, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		f.logger.Warn("watcher setup failed, sleeping instead", logging.Error(err))
		return SleepWaiter{}.Wait(ctx, dir, timeout)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		f.logger.Warn("cannot watch directory, sleeping instead",
			logging.String(logging.FieldPath, dir),
			logging.Error(err),
		)
		return SleepWaiter{}.Wait(ctx, dir, timeout)
	}
	// New images commonly arrive one level down; deeper trees are picked up
	// by the scan after the timeout anyway.
	if entries, err := os.ReadDir(dir); err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				_ = watcher.Add(filepath.Join(dir, entry.Name()))
			}
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
			return false, nil
		case event, ok := <-watcher.Events:
			if !ok {
				return false, nil
			}
			if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Rename) {
				f.logger.Debug("change detected during backoff",
					logging.String(logging.FieldPath, event.Name),
				)
				return true, nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return false, nil
			}
			f.logger.Warn("watch error during backoff", logging.Error(err))
		}
	}
}
