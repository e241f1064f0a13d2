// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"mural/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LibraryDir = filepath.Join(base, "library")
	cfg.Paths.FallbackDirs = []string{filepath.Join(base, "fallback")}
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.History.Path = filepath.Join(base, "state", "history.db")
	cfg.Desktop.LockDetection = false
	cfg.Rotation.WatchSources = false

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithRetireAfter overrides the retirement threshold.
func WithRetireAfter(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Rotation.RetireAfter = n
	}
}

// WithRecycleDisabled makes retirements delete instead of move.
func WithRecycleDisabled() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Rotation.RecycleEnabled = false
	}
}

// WriteImage creates a placeholder image file, including parent directories.
func WriteImage(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("img"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
