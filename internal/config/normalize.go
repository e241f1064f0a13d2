package config

import (
	"path/filepath"
	"strings"
)

// normalize expands and absolutizes configured paths and fills derived
// defaults that depend on other fields.
func (c *Config) normalize() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return err
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}

	fallbacks := make([]string, 0, len(c.Paths.FallbackDirs))
	for _, dir := range c.Paths.FallbackDirs {
		trimmed := strings.TrimSpace(dir)
		if trimmed == "" {
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return err
		}
		fallbacks = append(fallbacks, expanded)
	}
	c.Paths.FallbackDirs = fallbacks

	// Relative recycle dirs stay relative; RecyclePath anchors them under the
	// library at call time. Absolute or ~-prefixed values are expanded here.
	recycle := strings.TrimSpace(c.Paths.RecycleDir)
	if recycle == "" {
		recycle = defaultRecycleDir
	}
	if strings.HasPrefix(recycle, "~") || filepath.IsAbs(recycle) {
		if recycle, err = expandPath(recycle); err != nil {
			return err
		}
	}
	c.Paths.RecycleDir = recycle

	if c.History.Enabled {
		path := strings.TrimSpace(c.History.Path)
		if path == "" {
			path = filepath.Join(c.Paths.StateDir, "history.db")
		} else if path, err = expandPath(path); err != nil {
			return err
		}
		c.History.Path = path
	}

	c.Desktop.PictureMode = strings.ToLower(strings.TrimSpace(c.Desktop.PictureMode))
	if c.Desktop.PictureMode == "" {
		c.Desktop.PictureMode = defaultPictureMode
	}

	return nil
}
