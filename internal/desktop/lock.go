package desktop

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"mural/internal/logging"
)

// LockProber reports whether the interactive session is currently locked.
type LockProber interface {
	Locked(ctx context.Context) (bool, error)
}

// NopProber always reports unlocked. Used when lock detection is disabled or
// unavailable on the running desktop.
type NopProber struct{}

func (NopProber) Locked(context.Context) (bool, error) { return false, nil }

// ScreenSaverProber queries the GNOME screensaver over the session bus via
// gdbus. If gdbus is missing the prober degrades to always-unlocked and says
// so once.
type ScreenSaverProber struct {
	logger    *slog.Logger
	run       runner
	available bool
}

// ScreenSaverOption customizes prober construction.
type ScreenSaverOption func(*ScreenSaverProber)

// WithProbeRunner overrides command execution, for tests.
func WithProbeRunner(run func(ctx context.Context, name string, args ...string) ([]byte, error)) ScreenSaverOption {
	return func(p *ScreenSaverProber) {
		p.run = run
		p.available = true
	}
}

// NewScreenSaverProber builds the gdbus-backed prober, checking binary
// availability once.
func NewScreenSaverProber(logger *slog.Logger, opts ...ScreenSaverOption) *ScreenSaverProber {
	p := &ScreenSaverProber{
		logger: logging.NewComponentLogger(logger, "desktop"),
		run:    execRunner,
	}
	if _, err := exec.LookPath("gdbus"); err == nil {
		p.available = true
	}
	for _, opt := range opts {
		opt(p)
	}
	if !p.available {
		p.logger.Warn("gdbus not found, lock detection disabled")
	}
	return p
}

// Locked asks org.gnome.ScreenSaver for its active state. Output is of the
// form "(true,)" or "(false,)".
func (p *ScreenSaverProber) Locked(ctx context.Context) (bool, error) {
	if !p.available {
		return false, nil
	}
	out, err := p.run(ctx, "gdbus",
		"call", "--session",
		"--dest", "org.gnome.ScreenSaver",
		"--object-path", "/org/gnome/ScreenSaver",
		"--method", "org.gnome.ScreenSaver.GetActive",
	)
	if err != nil {
		return false, fmt.Errorf("query screensaver state: %w (%s)", err, strings.TrimSpace(string(out)))
	}
	reply := strings.TrimSpace(string(out))
	switch {
	case strings.Contains(reply, "true"):
		return true, nil
	case strings.Contains(reply, "false"):
		return false, nil
	default:
		return false, fmt.Errorf("unexpected screensaver reply %q", reply)
	}
}
