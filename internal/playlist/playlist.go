// Package playlist maintains the shuffled queue of images served to the
// rotation loop.
//
// A refresh scans the active source once, shuffles the result, and serves
// sequential draws from it until the refresh budget expires or the list is
// exhausted. This keeps per-tick cost constant even for libraries with
// thousands of files while still giving statistically uniform rotation.
package playlist

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"mural/internal/library"
	"mural/internal/logging"
)

// Cache holds the shuffled image list for the current source root.
type Cache struct {
	budget time.Duration
	logger *slog.Logger
	now    func() time.Time

	root        string
	opts        library.ScanOptions
	entries     []string
	cursor      int
	refreshedAt time.Time
}

// Option customizes cache construction.
type Option func(*Cache)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty cache. The first ShouldRefresh call reports true.
func New(budget time.Duration, logger *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		budget: budget,
		logger: logging.NewComponentLogger(logger, "playlist"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetRoot points the cache at a new source root and invalidates it. Calling
// it with the current root is a no-op so steady-state ticks keep their cache.
func (c *Cache) SetRoot(root string, opts library.ScanOptions) {
	if c.root == root && c.opts == opts {
		return
	}
	c.root = root
	c.opts = opts
	c.Invalidate()
}

// Invalidate discards the cached list, forcing a refresh on the next cycle.
func (c *Cache) Invalidate() {
	c.entries = nil
	c.cursor = 0
	c.refreshedAt = time.Time{}
}

// ShouldRefresh reports whether the cache is empty or older than the budget.
func (c *Cache) ShouldRefresh() bool {
	if len(c.entries) == 0 || c.cursor >= len(c.entries) {
		return true
	}
	return c.now().Sub(c.refreshedAt) > c.budget
}

// Refresh rescans the source root and reshuffles. An empty scan result is a
// valid outcome, not an error.
func (c *Cache) Refresh() error {
	if c.root == "" {
		return fmt.Errorf("playlist root not set")
	}
	images, err := library.Scan(c.root, c.opts)
	if err != nil {
		return fmt.Errorf("scan %s: %w", c.root, err)
	}
	rand.Shuffle(len(images), func(i, j int) {
		images[i], images[j] = images[j], images[i]
	})
	c.entries = images
	c.cursor = 0
	c.refreshedAt = c.now()
	c.logger.Debug("playlist refreshed",
		logging.String(logging.FieldSource, c.root),
		logging.Int("images", len(images)),
	)
	return nil
}

// Next returns the path at the draw cursor and advances it. The second return
// is false once the list is exhausted; the cache is then empty and the next
// ShouldRefresh reports true.
func (c *Cache) Next() (string, bool) {
	if c.cursor >= len(c.entries) {
		c.entries = nil
		c.cursor = 0
		return "", false
	}
	path := c.entries[c.cursor]
	c.cursor++
	return path, true
}

// Len returns the number of undrawn entries.
func (c *Cache) Len() int {
	return len(c.entries) - c.cursor
}
