// Package retire removes images that have reached their display quota,
// either by moving them into the recycle tree or deleting them outright.
package retire

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mural/internal/counter"
	"mural/internal/fileutil"
	"mural/internal/logging"
)

// Handler executes retirements against the primary library.
type Handler struct {
	primaryRoot    string
	recycleDir     string
	recycleEnabled bool
	counters       *counter.Store
	logger         *slog.Logger
	now            func() time.Time
}

// Option customizes handler construction.
type Option func(*Handler)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// New builds a handler rooted at the primary library. When recycleEnabled is
// false retired images are deleted instead of moved.
func New(primaryRoot, recycleDir string, recycleEnabled bool, counters *counter.Store, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		primaryRoot:    primaryRoot,
		recycleDir:     recycleDir,
		recycleEnabled: recycleEnabled,
		counters:       counters,
		logger:         logging.NewComponentLogger(logger, "retire"),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Recycled reports whether retirements move files rather than delete them.
func (h *Handler) Recycled() bool {
	return h.recycleEnabled
}

// Retire removes path from the library and clears its display count. A file
// that already vanished still gets its counter entry dropped, so retries and
// external deletions converge on the same state.
func (h *Handler) Retire(path string) error {
	recycled := false
	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		if h.recycleEnabled {
			if err := h.recycle(path); err != nil {
				return err
			}
			recycled = true
		} else if err := os.Remove(path); err != nil {
			return fmt.Errorf("delete retired image %s: %w", path, err)
		}
	case errors.Is(statErr, fs.ErrNotExist):
		// Already gone. Fall through to clear the counter.
	default:
		return fmt.Errorf("stat retired image %s: %w", path, statErr)
	}

	if err := h.counters.Remove(path); err != nil {
		return fmt.Errorf("clear count for %s: %w", path, err)
	}
	h.pruneEmptyDirs(filepath.Dir(path))

	h.logger.Info("image retired",
		logging.String(logging.FieldPath, path),
		logging.Bool("recycled", recycled),
		logging.String(logging.FieldEventType, "retire"),
	)
	return nil
}

// recycle moves path under the recycle tree, preserving its position relative
// to the library root. A name collision gets a timestamp suffix instead of
// overwriting the earlier retiree.
func (h *Handler) recycle(path string) error {
	rel, err := filepath.Rel(h.primaryRoot, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(path)
	}
	dst := filepath.Join(h.recycleDir, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create recycle directory: %w", err)
	}
	if _, err := os.Stat(dst); err == nil {
		ext := filepath.Ext(dst)
		dst = strings.TrimSuffix(dst, ext) + "-" + h.now().UTC().Format("20060102T150405") + ext
	}
	if err := fileutil.MoveFile(path, dst); err != nil {
		return fmt.Errorf("recycle %s: %w", path, err)
	}
	return nil
}

// pruneEmptyDirs removes now-empty directories between dir and the library
// root. The root itself and anything under the recycle tree stay.
func (h *Handler) pruneEmptyDirs(dir string) {
	for {
		if dir == h.primaryRoot || !strings.HasPrefix(dir, h.primaryRoot+string(filepath.Separator)) {
			return
		}
		if h.recycleDir != "" && (dir == h.recycleDir || strings.HasPrefix(dir, h.recycleDir+string(filepath.Separator))) {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
