package desktop

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"strings"

	"mural/internal/logging"
)

const (
	backgroundSchema = "org.gnome.desktop.background"
	keyPictureURI    = "picture-uri"
	keyPictureDark   = "picture-uri-dark"
	keyPictureMode   = "picture-options"
)

// Setter applies an image as the desktop background.
type Setter interface {
	Apply(ctx context.Context, path string) error
}

// runner executes an external command and returns its combined output. It is
// injectable so tests never spawn real processes.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// GSettings sets the background through the gsettings CLI against the GNOME
// background schema.
type GSettings struct {
	setDark     bool
	pictureMode string
	logger      *slog.Logger
	run         runner
	lookPath    func(string) (string, error)
}

// GSettingsOption customizes setter construction.
type GSettingsOption func(*GSettings)

// WithRunner overrides command execution, for tests.
func WithRunner(run func(ctx context.Context, name string, args ...string) ([]byte, error)) GSettingsOption {
	return func(g *GSettings) { g.run = run }
}

// WithLookPath overrides binary discovery, for tests.
func WithLookPath(lookPath func(string) (string, error)) GSettingsOption {
	return func(g *GSettings) { g.lookPath = lookPath }
}

// NewGSettings builds the GNOME setter. pictureMode is applied once during
// Probe; setDark mirrors every image onto the dark-theme key.
func NewGSettings(setDark bool, pictureMode string, logger *slog.Logger, opts ...GSettingsOption) *GSettings {
	g := &GSettings{
		setDark:     setDark,
		pictureMode: pictureMode,
		logger:      logging.NewComponentLogger(logger, "desktop"),
		run:         execRunner,
		lookPath:    exec.LookPath,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Probe verifies the gsettings binary is reachable and applies the configured
// picture mode. A missing binary is fatal for the daemon; a rejected picture
// mode is only logged since older desktops lack some values.
func (g *GSettings) Probe(ctx context.Context) error {
	if _, err := g.lookPath("gsettings"); err != nil {
		return fmt.Errorf("gsettings not found in PATH: %w", err)
	}
	if g.pictureMode == "" {
		return nil
	}
	if out, err := g.run(ctx, "gsettings", "set", backgroundSchema, keyPictureMode, g.pictureMode); err != nil {
		g.logger.Warn("could not apply picture mode",
			logging.String("mode", g.pictureMode),
			logging.String("output", strings.TrimSpace(string(out))),
			logging.Error(err),
		)
	}
	return nil
}

// Apply points the background at path. The dark-theme key is best effort: a
// failure there is logged but does not fail the rotation.
func (g *GSettings) Apply(ctx context.Context, path string) error {
	uri := fileURI(path)
	if out, err := g.run(ctx, "gsettings", "set", backgroundSchema, keyPictureURI, uri); err != nil {
		return fmt.Errorf("set %s: %w (%s)", keyPictureURI, err, strings.TrimSpace(string(out)))
	}
	if g.setDark {
		if out, err := g.run(ctx, "gsettings", "set", backgroundSchema, keyPictureDark, uri); err != nil {
			g.logger.Warn("could not set dark variant",
				logging.String(logging.FieldPath, path),
				logging.String("output", strings.TrimSpace(string(out))),
				logging.Error(err),
			)
		}
	}
	return nil
}

func fileURI(path string) string {
	u := url.URL{Scheme: "file", Path: path}
	return u.String()
}
