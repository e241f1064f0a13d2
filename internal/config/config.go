package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains source and state directory configuration.
type Paths struct {
	LibraryDir   string   `toml:"library_dir"`
	FallbackDirs []string `toml:"fallback_dirs"`
	RecycleDir   string   `toml:"recycle_dir"`
	StateDir     string   `toml:"state_dir"`
	LogDir       string   `toml:"log_dir"`
}

// Rotation contains configuration for the rotation loop.
type Rotation struct {
	IntervalSeconds         int  `toml:"interval_seconds"`
	RetireAfter             int  `toml:"retire_after"`
	RecycleEnabled          bool `toml:"recycle_enabled"`
	PlaylistRefreshSeconds  int  `toml:"playlist_refresh_seconds"`
	FollowSymlinks          bool `toml:"follow_symlinks"`
	FallbackCooldownSeconds int  `toml:"fallback_cooldown_seconds"`
	SettleDelaySeconds      int  `toml:"settle_delay_seconds"`
	MaxErrorMinutes         int  `toml:"max_error_minutes"`
	WatchSources            bool `toml:"watch_sources"`
}

// Backoff contains wait tuning for locked sessions and empty playlists.
type Backoff struct {
	LockInitialSeconds  int `toml:"lock_initial_seconds"`
	LockMaxSeconds      int `toml:"lock_max_seconds"`
	EmptyInitialSeconds int `toml:"empty_initial_seconds"`
	EmptyMaxSeconds     int `toml:"empty_max_seconds"`
}

// Desktop contains configuration for the wallpaper-setting capability.
type Desktop struct {
	SetDarkVariant bool   `toml:"set_dark_variant"`
	PictureMode    string `toml:"picture_mode"`
	LockDetection  bool   `toml:"lock_detection"`
}

// History contains configuration for the optional display journal.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for mural.
//
// Configuration sections by subsystem:
//   - Paths: image sources, recycle subtree, and daemon state directories
//   - Rotation: display interval, retirement, playlist refresh, cooldowns
//   - Backoff: locked-session and empty-playlist wait tuning
//   - Desktop: gsettings behavior (dark variant, picture mode, lock probe)
//   - History: optional SQLite journal of displays and retirements
//   - Logging: log format, level, and retention
type Config struct {
	Paths    Paths    `toml:"paths"`
	Rotation Rotation `toml:"rotation"`
	Backoff  Backoff  `toml:"backoff"`
	Desktop  Desktop  `toml:"desktop"`
	History  History  `toml:"history"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mural/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mural.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon needs to run. The
// library directory is created on a best-effort basis so the daemon can start
// while external storage is temporarily unavailable; source probing handles
// its absence.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	return nil
}

// Interval returns how long each image stays on screen.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Rotation.IntervalSeconds) * time.Second
}

// RefreshBudget returns how long a playlist may be served before a rescan.
func (c *Config) RefreshBudget() time.Duration {
	return time.Duration(c.Rotation.PlaylistRefreshSeconds) * time.Second
}

// FallbackCooldown returns the minimum spacing between fallback probes while
// the primary library is empty.
func (c *Config) FallbackCooldown() time.Duration {
	return time.Duration(c.Rotation.FallbackCooldownSeconds) * time.Second
}

// SettleDelay returns the pause after a retirement before the next tick.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Rotation.SettleDelaySeconds) * time.Second
}

// ErrorBudget returns the cumulative wallpaper-set failure time after which
// the daemon shuts down.
func (c *Config) ErrorBudget() time.Duration {
	return time.Duration(c.Rotation.MaxErrorMinutes) * time.Minute
}

// LockBackoffInitial returns the first wait applied when the session is locked.
func (c *Config) LockBackoffInitial() time.Duration {
	return time.Duration(c.Backoff.LockInitialSeconds) * time.Second
}

// LockBackoffMax returns the cap on locked-session waits.
func (c *Config) LockBackoffMax() time.Duration {
	return time.Duration(c.Backoff.LockMaxSeconds) * time.Second
}

// EmptyBackoffInitial returns the first wait applied when no images are available.
func (c *Config) EmptyBackoffInitial() time.Duration {
	return time.Duration(c.Backoff.EmptyInitialSeconds) * time.Second
}

// EmptyBackoffMax returns the cap on empty-playlist waits.
func (c *Config) EmptyBackoffMax() time.Duration {
	return time.Duration(c.Backoff.EmptyMaxSeconds) * time.Second
}

// RecyclePath returns the absolute path of the recycle subtree. A relative
// recycle_dir value is anchored under the primary library.
func (c *Config) RecyclePath() string {
	dir := strings.TrimSpace(c.Paths.RecycleDir)
	if dir == "" {
		dir = defaultRecycleDir
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(c.Paths.LibraryDir, dir)
}

// CounterFile returns the path of the display-count store.
func (c *Config) CounterFile() string {
	return filepath.Join(c.Paths.StateDir, "display_counts")
}

// RunLockFile returns the sentinel file guarding single-instance execution.
func (c *Config) RunLockFile() string {
	return filepath.Join(c.Paths.StateDir, "murald.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
