package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofrs/flock"

	"mural/internal/logging"
	"mural/internal/rotation"
)

// ErrAlreadyRunning reports that another daemon holds the run lock. The
// second instance exits cleanly rather than racing on the counter store.
var ErrAlreadyRunning = errors.New("another mural daemon instance is already running")

// Daemon owns the run lock and drives the rotation engine.
type Daemon struct {
	engine   *rotation.Engine
	logger   *slog.Logger
	lockPath string
	lock     *flock.Flock
}

// New constructs a daemon around an initialized engine.
func New(lockPath string, engine *rotation.Engine, logger *slog.Logger) (*Daemon, error) {
	if engine == nil || logger == nil {
		return nil, errors.New("daemon requires engine and logger")
	}
	return &Daemon{
		engine:   engine,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// LockPath returns the sentinel file guarding this daemon's store.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Run acquires the run lock and blocks in the rotation loop until ctx is
// cancelled or the engine terminates. The lock is released on every exit
// path.
func (d *Daemon) Run(ctx context.Context, waitFirst bool) error {
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock %s: %w", d.lockPath, err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer func() {
		if unlockErr := d.lock.Unlock(); unlockErr != nil {
			d.logger.Warn("failed to release run lock", logging.Error(unlockErr))
		}
	}()

	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	err = d.engine.Run(ctx, waitFirst)
	d.logger.Info("daemon stopped")
	return err
}
