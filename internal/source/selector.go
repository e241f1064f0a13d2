// Package source decides which directory feeds the rotation: the curated
// primary library or one of the ordered system fallback directories.
package source

import (
	"errors"
	"log/slog"
	"time"

	"mural/internal/library"
	"mural/internal/logging"
)

// Kind labels the active source class. Retirement is only ever allowed for
// the primary library.
type Kind string

const (
	KindPrimary  Kind = "primary"
	KindFallback Kind = "fallback"
)

// ErrNoContent reports that neither the primary library nor any fallback
// directory holds a playable image. Callers treat it as a clean "nothing to
// do" termination, not a failure.
var ErrNoContent = errors.New("no playable images in primary or fallback sources")

// Selector tracks the active source root and applies the switch rules:
// return to the primary library as soon as it regains content, fall back to
// the first non-empty fallback when the primary empties, and keep a cooldown
// between fallback probes so a library that is being repopulated does not
// cause thrashing.
type Selector struct {
	primary   string
	fallbacks []string
	follow    bool
	exclude   string
	cooldown  time.Duration
	logger    *slog.Logger
	now       func() time.Time

	active    string
	kind      Kind
	lastProbe time.Time
}

// Option customizes selector construction.
type Option func(*Selector)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Selector) { s.now = now }
}

// New builds a selector. exclude is the recycle subtree under the primary
// library; it never applies to fallback roots.
func New(primary string, fallbacks []string, exclude string, followSymlinks bool, cooldown time.Duration, logger *slog.Logger, opts ...Option) *Selector {
	s := &Selector{
		primary:   primary,
		fallbacks: fallbacks,
		follow:    followSymlinks,
		exclude:   exclude,
		cooldown:  cooldown,
		logger:    logging.NewComponentLogger(logger, "source"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start performs the initial probe: primary first, then fallbacks in
// configured order. ErrNoContent means nothing anywhere is playable.
func (s *Selector) Start() error {
	if library.HasPlayable(s.primary, s.primaryOpts()) {
		s.setActive(s.primary, KindPrimary)
		return nil
	}
	s.lastProbe = s.now()
	for _, fallback := range s.fallbacks {
		if library.HasPlayable(fallback, s.fallbackOpts()) {
			s.setActive(fallback, KindFallback)
			return nil
		}
	}
	return ErrNoContent
}

// Reevaluate applies the per-tick transition rules and reports whether the
// active root changed. The primary-regained check runs first and ignores the
// cooldown; only empty-source fallback probing is cooldown-gated.
func (s *Selector) Reevaluate() bool {
	if s.kind == KindFallback {
		if library.HasPlayable(s.primary, s.primaryOpts()) {
			s.setActive(s.primary, KindPrimary)
			return true
		}
		if library.HasPlayable(s.active, s.fallbackOpts()) {
			return false
		}
		return s.probeFallbacks()
	}

	if library.HasPlayable(s.primary, s.primaryOpts()) {
		return false
	}
	return s.probeFallbacks()
}

func (s *Selector) probeFallbacks() bool {
	now := s.now()
	if now.Sub(s.lastProbe) < s.cooldown {
		return false
	}
	s.lastProbe = now
	for _, fallback := range s.fallbacks {
		if fallback == s.active {
			continue
		}
		if library.HasPlayable(fallback, s.fallbackOpts()) {
			s.setActive(fallback, KindFallback)
			return true
		}
	}
	// Nothing qualified; stay put and let the scheduler back off.
	return false
}

func (s *Selector) setActive(root string, kind Kind) {
	if s.active == root && s.kind == kind {
		return
	}
	s.active = root
	s.kind = kind
	s.logger.Info("active source changed",
		logging.String(logging.FieldSource, root),
		logging.String("kind", string(kind)),
		logging.String(logging.FieldEventType, "source_switch"),
	)
}

// ActiveRoot returns the directory currently feeding the playlist.
func (s *Selector) ActiveRoot() string {
	return s.active
}

// Kind returns the class of the active root.
func (s *Selector) Kind() Kind {
	return s.kind
}

// AllowDelete reports whether retirement actions are permitted. It is true
// exactly when the active root is the primary library.
func (s *Selector) AllowDelete() bool {
	return s.kind == KindPrimary
}

// ScanOptions returns the traversal options for the active root.
func (s *Selector) ScanOptions() library.ScanOptions {
	if s.kind == KindPrimary {
		return s.primaryOpts()
	}
	return s.fallbackOpts()
}

func (s *Selector) primaryOpts() library.ScanOptions {
	return library.ScanOptions{FollowSymlinks: s.follow, Exclude: s.exclude}
}

func (s *Selector) fallbackOpts() library.ScanOptions {
	return library.ScanOptions{FollowSymlinks: s.follow}
}
