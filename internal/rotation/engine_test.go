package rotation_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mural/internal/counter"
	"mural/internal/logging"
	"mural/internal/playlist"
	"mural/internal/retire"
	"mural/internal/rotation"
	"mural/internal/source"
	"mural/internal/testsupport"
)

type fakeSetter struct {
	calls []string
	err   error
}

func (f *fakeSetter) Apply(_ context.Context, path string) error {
	f.calls = append(f.calls, path)
	return f.err
}

type fakeLock struct {
	answers []bool
	idx     int
}

func (f *fakeLock) Locked(context.Context) (bool, error) {
	if f.idx >= len(f.answers) {
		return false, nil
	}
	locked := f.answers[f.idx]
	f.idx++
	return locked, nil
}

type fakeWaiter struct {
	waits []time.Duration
	fire  func() bool
}

func (f *fakeWaiter) Wait(_ context.Context, _ string, timeout time.Duration) (bool, error) {
	f.waits = append(f.waits, timeout)
	if f.fire != nil {
		return f.fire(), nil
	}
	return false, nil
}

type harness struct {
	engine   *rotation.Engine
	cache    *playlist.Cache
	counters *counter.Store
	setter   *fakeSetter
	locks    *fakeLock
	waiter   *fakeWaiter
	sleeps   []time.Duration
	primary  string
	recycle  string
}

func newHarness(t *testing.T, primary string, fallbacks []string, params rotation.Params) *harness {
	t.Helper()
	logger := logging.NewNop()
	recycleDir := filepath.Join(primary, ".retired")

	counters, err := counter.Open(filepath.Join(t.TempDir(), "display_counts"))
	if err != nil {
		t.Fatalf("counter.Open failed: %v", err)
	}

	h := &harness{
		counters: counters,
		setter:   &fakeSetter{},
		locks:    &fakeLock{},
		waiter:   &fakeWaiter{},
		primary:  primary,
		recycle:  recycleDir,
	}
	params.PrimaryRoot = primary

	sel := source.New(primary, fallbacks, recycleDir, false, time.Minute, logger)
	cache := playlist.New(time.Hour, logger)
	h.cache = cache
	retirer := retire.New(primary, recycleDir, true, counters, logger)

	h.engine = rotation.New(params, sel, cache, counters, h.setter, h.locks, h.waiter, retirer, nil, logger,
		rotation.WithSleep(func(_ context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			return nil
		}),
	)
	return h
}

func defaultParams() rotation.Params {
	return rotation.Params{
		Interval:            10 * time.Minute,
		RetireAfter:         3,
		SettleDelay:         2 * time.Second,
		ErrorBudget:         time.Hour,
		LockBackoffInitial:  10 * time.Second,
		LockBackoffMax:      600 * time.Second,
		EmptyBackoffInitial: 30 * time.Second,
		EmptyBackoffMax:     1800 * time.Second,
	}
}

func resolve(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		t.Fatalf("resolve %s: %v", path, err)
	}
	return resolved
}

func mustGet(t *testing.T, store *counter.Store, path string) int {
	t.Helper()
	count, err := store.Get(path)
	if err != nil {
		t.Fatalf("Get %s: %v", path, err)
	}
	return count
}

func TestSingleImageReachesThresholdAndRetires(t *testing.T) {
	primary := t.TempDir()
	img := filepath.Join(primary, "nature", "alps.jpg")
	testsupport.WriteImage(t, img)

	h := newHarness(t, primary, nil, defaultParams())
	if err := h.engine.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	resolved := resolve(t, img)
	ctx := context.Background()

	for tick := 1; tick <= 2; tick++ {
		if err := h.engine.Tick(ctx); err != nil {
			t.Fatalf("tick %d failed: %v", tick, err)
		}
		if got := mustGet(t, h.counters, resolved); got != tick {
			t.Fatalf("after tick %d: count=%d, want %d", tick, got, tick)
		}
	}

	// Third display reaches the threshold; retirement happens after the
	// interval sleep, then the settle delay.
	if err := h.engine.Tick(ctx); err != nil {
		t.Fatalf("third tick failed: %v", err)
	}
	if got := mustGet(t, h.counters, resolved); got != 0 {
		t.Fatalf("expected cleared count after retirement, got %d", got)
	}
	moved := filepath.Join(h.recycle, "nature", "alps.jpg")
	if _, err := os.Stat(moved); err != nil {
		t.Fatalf("expected image recycled to %s: %v", moved, err)
	}
	if len(h.setter.calls) != 3 {
		t.Fatalf("expected 3 displays, got %d", len(h.setter.calls))
	}

	interval := defaultParams().Interval
	wantSleeps := []time.Duration{interval, interval, interval, 2 * time.Second}
	if len(h.sleeps) != len(wantSleeps) {
		t.Fatalf("sleeps %v, want %v", h.sleeps, wantSleeps)
	}
	for i, want := range wantSleeps {
		if h.sleeps[i] != want {
			t.Fatalf("sleep %d = %v, want %v", i, h.sleeps[i], want)
		}
	}

	// The library is now empty; the next tick enters empty backoff.
	if err := h.engine.Tick(ctx); err != nil {
		t.Fatalf("post-retirement tick failed: %v", err)
	}
	if len(h.waiter.waits) != 1 || h.waiter.waits[0] != 30*time.Second {
		t.Fatalf("expected initial empty backoff of 30s, got %v", h.waiter.waits)
	}
}

func TestLockBackoffDoublesWithoutTouchingCounts(t *testing.T) {
	primary := t.TempDir()
	img := filepath.Join(primary, "a.jpg")
	testsupport.WriteImage(t, img)

	h := newHarness(t, primary, nil, defaultParams())
	h.locks.answers = []bool{true, true, true}
	if err := h.engine.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	ctx := context.Background()

	for tick := 0; tick < 3; tick++ {
		if err := h.engine.Tick(ctx); err != nil {
			t.Fatalf("locked tick failed: %v", err)
		}
	}
	want := []time.Duration{10 * time.Second, 20 * time.Second, 40 * time.Second}
	if len(h.sleeps) != len(want) {
		t.Fatalf("sleeps %v, want %v", h.sleeps, want)
	}
	for i, w := range want {
		if h.sleeps[i] != w {
			t.Fatalf("sleep %d = %v, want %v", i, h.sleeps[i], w)
		}
	}
	if len(h.setter.calls) != 0 {
		t.Fatal("locked session must never reach the setter")
	}
	if got := mustGet(t, h.counters, resolve(t, img)); got != 0 {
		t.Fatalf("locked ticks must not mutate counts, got %d", got)
	}

	// Unlocked again: the backoff resets and the image is displayed.
	if err := h.engine.Tick(ctx); err != nil {
		t.Fatalf("unlocked tick failed: %v", err)
	}
	if len(h.setter.calls) != 1 {
		t.Fatalf("expected a display after unlock, got %d calls", len(h.setter.calls))
	}
	h.locks.answers = append(h.locks.answers, true)
	h.locks.idx = len(h.locks.answers) - 1
	if err := h.engine.Tick(ctx); err != nil {
		t.Fatalf("re-locked tick failed: %v", err)
	}
	if last := h.sleeps[len(h.sleeps)-1]; last != 10*time.Second {
		t.Fatalf("expected lock backoff reset to 10s, got %v", last)
	}
}

func TestFailedSetNeverMutatesCount(t *testing.T) {
	primary := t.TempDir()
	img := filepath.Join(primary, "a.jpg")
	testsupport.WriteImage(t, img)

	h := newHarness(t, primary, nil, defaultParams())
	h.setter.err = errors.New("dconf unavailable")
	if err := h.engine.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := h.engine.Tick(context.Background()); err != nil {
		t.Fatalf("tick with failing setter must stay transient: %v", err)
	}
	if got := mustGet(t, h.counters, resolve(t, img)); got != 0 {
		t.Fatalf("failed set must not mutate count, got %d", got)
	}
}

func TestErrorBudgetTerminatesLoop(t *testing.T) {
	primary := t.TempDir()
	testsupport.WriteImage(t, filepath.Join(primary, "a.jpg"))

	params := defaultParams()
	params.ErrorBudget = 30 * time.Minute // three failed 10-minute intervals
	h := newHarness(t, primary, nil, params)
	h.setter.err = errors.New("dconf unavailable")
	if err := h.engine.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	ctx := context.Background()

	for tick := 0; tick < 2; tick++ {
		if err := h.engine.Tick(ctx); err != nil {
			t.Fatalf("tick %d should still be within budget: %v", tick, err)
		}
	}
	if err := h.engine.Tick(ctx); !errors.Is(err, rotation.ErrErrorBudgetExceeded) {
		t.Fatalf("expected ErrErrorBudgetExceeded, got %v", err)
	}
}

func TestFallbackImagesAreNeverRetired(t *testing.T) {
	fallback := t.TempDir()
	img := filepath.Join(fallback, "sys.jpg")
	testsupport.WriteImage(t, img)

	params := defaultParams()
	params.RetireAfter = 1
	h := newHarness(t, t.TempDir(), []string{fallback}, params)
	if err := h.engine.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := h.engine.Tick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if _, err := os.Stat(img); err != nil {
		t.Fatalf("fallback image must survive any display count: %v", err)
	}
	if got := mustGet(t, h.counters, resolve(t, img)); got != 1 {
		t.Fatalf("expected fallback display counted, got %d", got)
	}
}

func TestVanishedFileSkipsWithoutBurningInterval(t *testing.T) {
	primary := t.TempDir()
	img := filepath.Join(primary, "a.jpg")
	testsupport.WriteImage(t, img)

	h := newHarness(t, primary, nil, defaultParams())
	if err := h.engine.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Materialize the playlist, then pull the file out from under it.
	if err := h.cache.Refresh(); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if err := os.Remove(img); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if err := h.engine.Tick(context.Background()); err != nil {
		t.Fatalf("tick after vanish failed: %v", err)
	}
	if len(h.setter.calls) != 0 {
		t.Fatal("vanished file must not reach the setter")
	}
	if len(h.sleeps) != 0 {
		t.Fatalf("skip must not consume a display interval, slept %v", h.sleeps)
	}
}

func TestEmptyBackoffDoublesAndResetsAfterDisplay(t *testing.T) {
	primary := t.TempDir()
	testsupport.WriteImage(t, filepath.Join(primary, "a.jpg"))

	params := defaultParams()
	params.RetireAfter = 1
	h := newHarness(t, primary, nil, params)
	if err := h.engine.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	ctx := context.Background()

	// First tick displays and retires the only image, leaving the library empty.
	if err := h.engine.Tick(ctx); err != nil {
		t.Fatalf("display tick failed: %v", err)
	}
	for tick := 0; tick < 3; tick++ {
		if err := h.engine.Tick(ctx); err != nil {
			t.Fatalf("empty tick %d failed: %v", tick, err)
		}
	}
	want := []time.Duration{30 * time.Second, 60 * time.Second, 120 * time.Second}
	if len(h.waiter.waits) != len(want) {
		t.Fatalf("empty waits %v, want %v", h.waiter.waits, want)
	}
	for i, w := range want {
		if h.waiter.waits[i] != w {
			t.Fatalf("empty wait %d = %v, want %v", i, h.waiter.waits[i], w)
		}
	}

	// New content arrives, the next display succeeds, and the backoff resets.
	testsupport.WriteImage(t, filepath.Join(primary, "b.jpg"))
	if err := h.engine.Tick(ctx); err != nil {
		t.Fatalf("display tick failed: %v", err)
	}
	if len(h.setter.calls) != 2 {
		t.Fatalf("expected 2 displays, got %d", len(h.setter.calls))
	}
	if err := h.engine.Tick(ctx); err != nil {
		t.Fatalf("post-reset empty tick failed: %v", err)
	}
	if last := h.waiter.waits[len(h.waiter.waits)-1]; last != 30*time.Second {
		t.Fatalf("expected empty backoff reset to 30s, got %v", last)
	}
}

func TestChangeNotificationWakesEmptyWait(t *testing.T) {
	primary := t.TempDir()
	testsupport.WriteImage(t, filepath.Join(primary, "a.jpg"))

	params := defaultParams()
	params.RetireAfter = 1
	h := newHarness(t, primary, nil, params)
	img := filepath.Join(primary, "fresh.png")
	h.waiter.fire = func() bool {
		testsupport.WriteImage(t, img)
		return true
	}
	if err := h.engine.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	ctx := context.Background()

	// Display and retire the only image, then hit the empty wait, which fires
	// as the new image lands.
	for tick := 0; tick < 2; tick++ {
		if err := h.engine.Tick(ctx); err != nil {
			t.Fatalf("tick %d failed: %v", tick, err)
		}
	}
	if len(h.waiter.waits) != 1 {
		t.Fatalf("expected a single empty wait, got %v", h.waiter.waits)
	}

	// The fired notification invalidated the playlist, so the very next tick
	// rescans and displays the new arrival.
	if err := h.engine.Tick(ctx); err != nil {
		t.Fatalf("post-notification tick failed: %v", err)
	}
	if len(h.setter.calls) != 2 {
		t.Fatalf("expected the new image displayed, got %d calls", len(h.setter.calls))
	}
	want := filepath.Join(resolve(t, primary), "fresh.png")
	if h.setter.calls[1] != want {
		t.Fatalf("displayed %q, want %q", h.setter.calls[1], want)
	}
}

func TestNoContentAtStartup(t *testing.T) {
	h := newHarness(t, t.TempDir(), nil, defaultParams())
	if err := h.engine.Start(); !errors.Is(err, source.ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
}
