package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"mural/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Paths.LibraryDir != filepath.Join(tempHome, "Pictures", "wallpapers") {
		t.Fatalf("unexpected library dir: %q", cfg.Paths.LibraryDir)
	}
	if len(cfg.Paths.FallbackDirs) != 1 || cfg.Paths.FallbackDirs[0] != "/usr/share/backgrounds" {
		t.Fatalf("unexpected fallback dirs: %v", cfg.Paths.FallbackDirs)
	}
	if cfg.Rotation.RetireAfter != 3 {
		t.Fatalf("unexpected retirement threshold: %d", cfg.Rotation.RetireAfter)
	}
	if !cfg.Rotation.RecycleEnabled {
		t.Fatal("expected recycle mode enabled by default")
	}
	if cfg.Backoff.LockInitialSeconds != 10 || cfg.Backoff.LockMaxSeconds != 600 {
		t.Fatalf("unexpected lock backoff defaults: %+v", cfg.Backoff)
	}
	if cfg.Desktop.PictureMode != "zoom" {
		t.Fatalf("unexpected picture mode: %q", cfg.Desktop.PictureMode)
	}
	if cfg.History.Enabled {
		t.Fatal("expected history disabled by default")
	}

	wantRecycle := filepath.Join(cfg.Paths.LibraryDir, ".retired")
	if cfg.RecyclePath() != wantRecycle {
		t.Fatalf("unexpected recycle path: got %q want %q", cfg.RecyclePath(), wantRecycle)
	}
	if cfg.CounterFile() != filepath.Join(cfg.Paths.StateDir, "display_counts") {
		t.Fatalf("unexpected counter file: %q", cfg.CounterFile())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir, cfg.Paths.LibraryDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be a directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "mural.toml")

	body := `
[paths]
library_dir = "` + filepath.Join(tempDir, "pics") + `"
fallback_dirs = ["` + filepath.Join(tempDir, "sys") + `", ""]
recycle_dir = "trash"

[rotation]
interval_seconds = 30
retire_after = 5
recycle_enabled = false

[history]
enabled = true
`
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q to be used, got %q exists=%v", configPath, resolved, exists)
	}
	if cfg.Rotation.IntervalSeconds != 30 {
		t.Fatalf("unexpected interval: %d", cfg.Rotation.IntervalSeconds)
	}
	if cfg.Rotation.RetireAfter != 5 {
		t.Fatalf("unexpected threshold: %d", cfg.Rotation.RetireAfter)
	}
	if cfg.Rotation.RecycleEnabled {
		t.Fatal("expected recycle disabled")
	}
	if len(cfg.Paths.FallbackDirs) != 1 {
		t.Fatalf("expected blank fallback entries dropped, got %v", cfg.Paths.FallbackDirs)
	}
	if cfg.RecyclePath() != filepath.Join(tempDir, "pics", "trash") {
		t.Fatalf("unexpected recycle path: %q", cfg.RecyclePath())
	}
	if cfg.History.Path == "" {
		t.Fatal("expected history path derived from state dir")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"zero interval", "[rotation]\ninterval_seconds = 0\n"},
		{"zero threshold", "[rotation]\nretire_after = 0\n"},
		{"lock max below initial", "[backoff]\nlock_initial_seconds = 60\nlock_max_seconds = 30\n"},
		{"bad picture mode", "[desktop]\npicture_mode = \"tiled\"\n"},
		{"bad log format", "[logging]\nformat = \"xml\"\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "mural.toml")
			if err := os.WriteFile(configPath, []byte(tc.body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, _, _, err := config.Load(configPath); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreateSampleWritesParsableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample config to load, exists=%v err=%v", exists, err)
	}
}
