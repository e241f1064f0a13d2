package retire_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"mural/internal/counter"
	"mural/internal/logging"
	"mural/internal/retire"
	"mural/internal/testsupport"
)

func mustGet(t *testing.T, store *counter.Store, path string) int {
	t.Helper()
	count, err := store.Get(path)
	if err != nil {
		t.Fatalf("Get %s: %v", path, err)
	}
	return count
}

func newCounters(t *testing.T) *counter.Store {
	t.Helper()
	store, err := counter.Open(filepath.Join(t.TempDir(), "display_counts"))
	if err != nil {
		t.Fatalf("counter.Open failed: %v", err)
	}
	return store
}

func TestRecyclePreservesRelativePath(t *testing.T) {
	root := t.TempDir()
	recycleDir := filepath.Join(root, ".retired")
	img := filepath.Join(root, "nature", "alps.jpg")
	testsupport.WriteImage(t, img)

	counters := newCounters(t)
	if err := counters.Upsert(img, 3); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	h := retire.New(root, recycleDir, true, counters, logging.NewNop())
	if err := h.Retire(img); err != nil {
		t.Fatalf("Retire failed: %v", err)
	}

	moved := filepath.Join(recycleDir, "nature", "alps.jpg")
	if _, err := os.Stat(moved); err != nil {
		t.Fatalf("expected image at %s: %v", moved, err)
	}
	if _, err := os.Stat(img); !os.IsNotExist(err) {
		t.Fatalf("expected original gone, stat err=%v", err)
	}
	if got := mustGet(t, counters, img); got != 0 {
		t.Fatalf("expected cleared count, got %d", got)
	}
	// The now-empty nature/ directory is pruned, the root stays.
	if _, err := os.Stat(filepath.Join(root, "nature")); !os.IsNotExist(err) {
		t.Fatalf("expected empty subdirectory pruned, stat err=%v", err)
	}
	if _, err := os.Stat(root); err != nil {
		t.Fatalf("library root must survive pruning: %v", err)
	}
}

func TestRecycleCollisionGetsSuffix(t *testing.T) {
	root := t.TempDir()
	recycleDir := filepath.Join(root, ".retired")
	testsupport.WriteImage(t, filepath.Join(recycleDir, "dup.jpg"))
	img := filepath.Join(root, "dup.jpg")
	testsupport.WriteImage(t, img)

	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	h := retire.New(root, recycleDir, true, newCounters(t), logging.NewNop(),
		retire.WithClock(func() time.Time { return now }),
	)
	if err := h.Retire(img); err != nil {
		t.Fatalf("Retire failed: %v", err)
	}

	suffixed := filepath.Join(recycleDir, "dup-20260314T092653.jpg")
	if _, err := os.Stat(suffixed); err != nil {
		t.Fatalf("expected collision-suffixed file at %s: %v", suffixed, err)
	}
	if data, err := os.ReadFile(filepath.Join(recycleDir, "dup.jpg")); err != nil || string(data) != "img" {
		t.Fatalf("earlier retiree must not be overwritten: %v", err)
	}
}

func TestDeleteWhenRecyclingDisabled(t *testing.T) {
	root := t.TempDir()
	img := filepath.Join(root, "old.png")
	testsupport.WriteImage(t, img)

	h := retire.New(root, "", false, newCounters(t), logging.NewNop())
	if err := h.Retire(img); err != nil {
		t.Fatalf("Retire failed: %v", err)
	}
	if _, err := os.Stat(img); !os.IsNotExist(err) {
		t.Fatalf("expected image deleted, stat err=%v", err)
	}
}

func TestRetireMissingFileStillClearsCount(t *testing.T) {
	root := t.TempDir()
	img := filepath.Join(root, "vanished.jpg")

	counters := newCounters(t)
	if err := counters.Upsert(img, 2); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	h := retire.New(root, filepath.Join(root, ".retired"), true, counters, logging.NewNop())
	if err := h.Retire(img); err != nil {
		t.Fatalf("Retire of missing file must succeed: %v", err)
	}
	if got := mustGet(t, counters, img); got != 0 {
		t.Fatalf("expected cleared count, got %d", got)
	}

	// Second call is a no-op.
	if err := h.Retire(img); err != nil {
		t.Fatalf("repeated Retire must stay idempotent: %v", err)
	}
}

func TestPruneNeverTouchesRecycleTree(t *testing.T) {
	root := t.TempDir()
	recycleDir := filepath.Join(root, ".retired")
	img := filepath.Join(root, "a.jpg")
	testsupport.WriteImage(t, img)
	testsupport.WriteImage(t, filepath.Join(recycleDir, "keep.jpg"))

	h := retire.New(root, recycleDir, true, newCounters(t), logging.NewNop())
	if err := h.Retire(img); err != nil {
		t.Fatalf("Retire failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(recycleDir, "keep.jpg")); err != nil {
		t.Fatalf("recycle tree contents must survive: %v", err)
	}
}
