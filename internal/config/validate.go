package config

import (
	"errors"
	"fmt"
	"strings"
)

// pictureModes mirrors the values accepted by the GNOME picture-options key.
var pictureModes = map[string]struct{}{
	"none":      {},
	"wallpaper": {},
	"centered":  {},
	"scaled":    {},
	"stretched": {},
	"zoom":      {},
	"spanned":   {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRotation(); err != nil {
		return err
	}
	if err := c.validateBackoff(); err != nil {
		return err
	}
	if err := c.validateDesktop(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateRotation() error {
	if c.Rotation.IntervalSeconds < 1 {
		return errors.New("rotation.interval_seconds must be at least 1")
	}
	if c.Rotation.RetireAfter < 1 {
		return errors.New("rotation.retire_after must be at least 1")
	}
	if c.Rotation.PlaylistRefreshSeconds < 1 {
		return errors.New("rotation.playlist_refresh_seconds must be at least 1")
	}
	if c.Rotation.FallbackCooldownSeconds < 0 {
		return errors.New("rotation.fallback_cooldown_seconds must not be negative")
	}
	if c.Rotation.SettleDelaySeconds < 0 {
		return errors.New("rotation.settle_delay_seconds must not be negative")
	}
	if c.Rotation.MaxErrorMinutes < 1 {
		return errors.New("rotation.max_error_minutes must be at least 1")
	}
	return nil
}

func (c *Config) validateBackoff() error {
	if c.Backoff.LockInitialSeconds < 1 {
		return errors.New("backoff.lock_initial_seconds must be at least 1")
	}
	if c.Backoff.LockMaxSeconds < c.Backoff.LockInitialSeconds {
		return errors.New("backoff.lock_max_seconds must be at least backoff.lock_initial_seconds")
	}
	if c.Backoff.EmptyInitialSeconds < 1 {
		return errors.New("backoff.empty_initial_seconds must be at least 1")
	}
	if c.Backoff.EmptyMaxSeconds < c.Backoff.EmptyInitialSeconds {
		return errors.New("backoff.empty_max_seconds must be at least backoff.empty_initial_seconds")
	}
	return nil
}

func (c *Config) validateDesktop() error {
	if _, ok := pictureModes[c.Desktop.PictureMode]; !ok {
		return fmt.Errorf("desktop.picture_mode: unsupported value %q", c.Desktop.PictureMode)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}
