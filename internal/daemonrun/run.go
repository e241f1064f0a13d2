// Package daemonrun assembles the daemon process runtime: signal handling,
// log files and retention, the pid file, and the wiring of every rotation
// component into a running daemon.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"mural/internal/config"
	"mural/internal/counter"
	"mural/internal/daemon"
	"mural/internal/desktop"
	"mural/internal/history"
	"mural/internal/logging"
	"mural/internal/notify"
	"mural/internal/playlist"
	"mural/internal/retire"
	"mural/internal/rotation"
	"mural/internal/source"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel          string
	WaitFirstInterval bool
}

// Run starts the mural daemon runtime loop. It returns when the signal
// context is cancelled or the rotation engine terminates; sentinel errors
// (daemon.ErrAlreadyRunning, source.ErrNoContent,
// rotation.ErrErrorBudgetExceeded) pass through for the CLI to map onto exit
// codes.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	runStamp := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("mural-%s.log", runStamp))

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update mural.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "mural-*.log", Exclude: []string{logPath}},
	)

	pidPath := filepath.Join(cfg.Paths.LogDir, "mural.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	runID := uuid.NewString()
	logger.Info("starting mural daemon",
		logging.String(logging.FieldRunID, runID),
		logging.String("library", cfg.Paths.LibraryDir),
		logging.Duration("interval", cfg.Interval()),
		logging.Int("retire_after", cfg.Rotation.RetireAfter),
		logging.Bool("recycle", cfg.Rotation.RecycleEnabled),
	)

	d, err := buildDaemon(signalCtx, cfg, logger)
	if err != nil {
		return err
	}

	err = d.Run(signalCtx, opts.WaitFirstInterval)
	if err != nil && signalCtx.Err() == nil {
		return err
	}
	logger.Info("mural daemon shutting down", logging.String(logging.FieldRunID, runID))
	return err
}

// buildDaemon wires the component graph: counter store, history journal,
// desktop capabilities, source selector, playlist, retirement handler, and
// the rotation engine.
func buildDaemon(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	counters, err := counter.Open(cfg.CounterFile())
	if err != nil {
		return nil, fmt.Errorf("open counter store: %w", err)
	}

	setter := desktop.NewGSettings(cfg.Desktop.SetDarkVariant, cfg.Desktop.PictureMode, logger)
	if err := setter.Probe(ctx); err != nil {
		return nil, fmt.Errorf("probe desktop capability: %w", err)
	}

	var locks desktop.LockProber = desktop.NopProber{}
	if cfg.Desktop.LockDetection {
		locks = desktop.NewScreenSaverProber(logger)
	}

	var journal rotation.Journal
	if cfg.History.Enabled {
		store, histErr := history.Open(cfg.History.Path)
		if histErr != nil {
			logger.Warn("history journal unavailable, continuing without it", logging.Error(histErr))
		} else {
			journal = store
		}
	}

	recycleDir := cfg.RecyclePath()
	selector := source.New(
		cfg.Paths.LibraryDir,
		cfg.Paths.FallbackDirs,
		recycleDir,
		cfg.Rotation.FollowSymlinks,
		cfg.FallbackCooldown(),
		logger,
	)
	cache := playlist.New(cfg.RefreshBudget(), logger)
	retirer := retire.New(cfg.Paths.LibraryDir, recycleDir, cfg.Rotation.RecycleEnabled, counters, logger)

	var waiter notify.Waiter = notify.SleepWaiter{}
	if cfg.Rotation.WatchSources {
		waiter = notify.Detect(logger)
	}

	engine := rotation.New(
		rotation.Params{
			Interval:            cfg.Interval(),
			RetireAfter:         cfg.Rotation.RetireAfter,
			SettleDelay:         cfg.SettleDelay(),
			ErrorBudget:         cfg.ErrorBudget(),
			LockBackoffInitial:  cfg.LockBackoffInitial(),
			LockBackoffMax:      cfg.LockBackoffMax(),
			EmptyBackoffInitial: cfg.EmptyBackoffInitial(),
			EmptyBackoffMax:     cfg.EmptyBackoffMax(),
			PrimaryRoot:         cfg.Paths.LibraryDir,
		},
		selector, cache, counters, setter, locks, waiter, retirer, journal, logger,
	)

	return daemon.New(cfg.RunLockFile(), engine, logger)
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "mural.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
