package rotation

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"mural/internal/counter"
	"mural/internal/desktop"
	"mural/internal/logging"
	"mural/internal/notify"
	"mural/internal/playlist"
	"mural/internal/retire"
	"mural/internal/source"
)

// ErrErrorBudgetExceeded reports that wallpaper application has been failing
// for longer than the configured ceiling. The desktop most likely lost its
// settings backend; the daemon shuts down gracefully instead of retrying
// forever.
var ErrErrorBudgetExceeded = errors.New("wallpaper failures exceeded the error budget")

// Params carries the tick-level tuning knobs.
type Params struct {
	Interval            time.Duration
	RetireAfter         int
	SettleDelay         time.Duration
	ErrorBudget         time.Duration
	LockBackoffInitial  time.Duration
	LockBackoffMax      time.Duration
	EmptyBackoffInitial time.Duration
	EmptyBackoffMax     time.Duration
	PrimaryRoot         string
}

// Journal receives display and retirement events. It is optional; a nil
// journal disables history without affecting rotation.
type Journal interface {
	RecordDisplay(ctx context.Context, path, source string, count int) error
	RecordRetirement(ctx context.Context, path string, count int, recycled bool) error
}

// pendingRetire is the deferred action produced by a display that pushed an
// image to its threshold. It is consumed only after the display interval.
type pendingRetire struct {
	path  string
	count int
}

// Engine owns all mutable rotation state and executes one tick at a time.
type Engine struct {
	params   Params
	selector *source.Selector
	cache    *playlist.Cache
	counters *counter.Store
	setter   desktop.Setter
	locks    desktop.LockProber
	waiter   notify.Waiter
	retirer  *retire.Handler
	journal  Journal
	logger   *slog.Logger

	sleep             func(ctx context.Context, d time.Duration) error
	lockBackoff       backoff
	emptyBackoff      backoff
	consecutiveErrors int
	primaryResolved   string
}

// Option customizes engine construction.
type Option func(*Engine)

// WithSleep overrides the inter-tick sleeping, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Engine) { e.sleep = sleep }
}

// New wires the engine. journal may be nil.
func New(
	params Params,
	selector *source.Selector,
	cache *playlist.Cache,
	counters *counter.Store,
	setter desktop.Setter,
	locks desktop.LockProber,
	waiter notify.Waiter,
	retirer *retire.Handler,
	journal Journal,
	logger *slog.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		params:       params,
		selector:     selector,
		cache:        cache,
		counters:     counters,
		setter:       setter,
		locks:        locks,
		waiter:       waiter,
		retirer:      retirer,
		journal:      journal,
		logger:       logging.NewComponentLogger(logger, "rotation"),
		sleep:        sleepContext,
		lockBackoff:  backoff{initial: params.LockBackoffInitial, max: params.LockBackoffMax},
		emptyBackoff: backoff{initial: params.EmptyBackoffInitial, max: params.EmptyBackoffMax},
	}
	e.primaryResolved = params.PrimaryRoot
	if resolved, err := filepath.EvalSymlinks(params.PrimaryRoot); err == nil {
		e.primaryResolved = resolved
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start performs the initial source probe and points the playlist at the
// chosen root. source.ErrNoContent means there is nothing to rotate anywhere;
// callers treat that as a clean exit.
func (e *Engine) Start() error {
	if err := e.selector.Start(); err != nil {
		return err
	}
	e.cache.SetRoot(e.selector.ActiveRoot(), e.selector.ScanOptions())
	return nil
}

// Run executes Start and then ticks until ctx is cancelled or an
// unrecoverable condition ends the loop. waitFirst delays the first display
// by one interval.
func (e *Engine) Run(ctx context.Context, waitFirst bool) error {
	if err := e.Start(); err != nil {
		return err
	}
	if waitFirst {
		if err := e.sleep(ctx, e.params.Interval); err != nil {
			return err
		}
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.Tick(ctx); err != nil {
			return err
		}
	}
}

// Tick runs one loop iteration. Transient trouble (locked session, empty
// playlist, a vanished file, a single failed set) is absorbed inside the
// tick; only cancellation and an exhausted error budget surface as errors.
func (e *Engine) Tick(ctx context.Context) error {
	if e.selector.Reevaluate() {
		e.logger.Info("rotating from new source",
			logging.String(logging.FieldSource, e.selector.ActiveRoot()),
		)
	}
	e.cache.SetRoot(e.selector.ActiveRoot(), e.selector.ScanOptions())

	locked, err := e.locks.Locked(ctx)
	if err != nil {
		e.logger.Warn("lock probe failed, assuming unlocked", logging.Error(err))
		locked = false
	}
	if locked {
		wait := e.lockBackoff.next()
		e.logger.Debug("session locked, backing off",
			logging.Duration("wait", wait),
		)
		return e.sleep(ctx, wait)
	}
	e.lockBackoff.reset()

	if e.cache.ShouldRefresh() {
		if err := e.cache.Refresh(); err != nil {
			e.logger.Warn("playlist refresh failed", logging.Error(err))
		}
	}

	if e.cache.Len() == 0 {
		if e.selector.Reevaluate() {
			e.cache.SetRoot(e.selector.ActiveRoot(), e.selector.ScanOptions())
			return nil
		}
		wait := e.emptyBackoff.next()
		e.logger.Info("no images to rotate, waiting",
			logging.String(logging.FieldSource, e.selector.ActiveRoot()),
			logging.Duration("wait", wait),
		)
		fired, err := e.waiter.Wait(ctx, e.selector.ActiveRoot(), wait)
		if err != nil {
			return err
		}
		if fired {
			e.cache.Invalidate()
		}
		return nil
	}

	pending, displayed, err := e.displayNext(ctx)
	if err != nil {
		return err
	}
	if !displayed {
		// Vanished file: move on to the next entry without burning an
		// interval on an image that never reached the screen.
		return nil
	}

	if err := e.sleep(ctx, e.params.Interval); err != nil {
		return err
	}

	if pending != nil {
		e.consumePending(ctx, *pending)
	}
	return nil
}

// displayNext draws one path, applies it, and persists the count. It returns
// the deferred retirement, if the display pushed the image to its threshold,
// and whether an attempt occupied the screen (so the tick knows to sleep out
// the display interval). A failed set still counts as occupying the interval;
// a vanished file does not.
func (e *Engine) displayNext(ctx context.Context) (*pendingRetire, bool, error) {
	path, ok := e.cache.Next()
	if !ok {
		return nil, false, nil
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		e.logger.Debug("image vanished before display, skipping",
			logging.String(logging.FieldPath, path),
		)
		return nil, false, nil
	}

	count, err := e.counters.Get(resolved)
	if err != nil {
		e.logger.Error("failed to read display count",
			logging.String(logging.FieldPath, resolved),
			logging.Error(err),
		)
		return nil, false, nil
	}
	if err := e.setter.Apply(ctx, resolved); err != nil {
		e.consecutiveErrors++
		elapsed := time.Duration(e.consecutiveErrors) * e.params.Interval
		e.logger.Error("failed to set background",
			logging.String(logging.FieldPath, resolved),
			logging.Int("consecutive_failures", e.consecutiveErrors),
			logging.Error(err),
		)
		if elapsed >= e.params.ErrorBudget {
			return nil, false, ErrErrorBudgetExceeded
		}
		return nil, true, nil
	}
	e.consecutiveErrors = 0
	e.emptyBackoff.reset()

	newCount := count + 1
	if err := e.counters.Upsert(resolved, newCount); err != nil {
		// Not committed: the next display repeats the stale count, which is
		// safe because retirement keys off the persisted value.
		e.logger.Error("failed to persist display count",
			logging.String(logging.FieldPath, resolved),
			logging.Error(err),
		)
		return nil, true, nil
	}

	e.logger.Info("background changed",
		logging.String(logging.FieldPath, resolved),
		logging.Int(logging.FieldCount, newCount),
		logging.String(logging.FieldSource, string(e.selector.Kind())),
		logging.String(logging.FieldEventType, "display"),
	)
	if e.journal != nil {
		if err := e.journal.RecordDisplay(ctx, resolved, string(e.selector.Kind()), newCount); err != nil {
			e.logger.Warn("history write failed", logging.Error(err))
		}
	}

	if newCount >= e.params.RetireAfter && e.selector.AllowDelete() && e.underPrimary(resolved) {
		return &pendingRetire{path: resolved, count: newCount}, true, nil
	}
	return nil, true, nil
}

// consumePending executes a deferred retirement after the display interval,
// then lets the filesystem settle before the next tick.
func (e *Engine) consumePending(ctx context.Context, pending pendingRetire) {
	if err := e.retirer.Retire(pending.path); err != nil {
		e.logger.Error("retirement failed",
			logging.String(logging.FieldPath, pending.path),
			logging.Error(err),
		)
		return
	}
	if e.journal != nil {
		if err := e.journal.RecordRetirement(ctx, pending.path, pending.count, e.retirer.Recycled()); err != nil {
			e.logger.Warn("history write failed", logging.Error(err))
		}
	}
	if e.params.SettleDelay > 0 {
		_ = e.sleep(ctx, e.params.SettleDelay)
	}
}

func (e *Engine) underPrimary(path string) bool {
	root := e.primaryResolved
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
