package daemonrun

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"mural/internal/testsupport"
)

func TestWritePIDFileRecordsCurrentProcess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(cfg.Paths.LogDir, "mural.pid")

	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pid file: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		t.Fatalf("pid file holds %q: %v", data, err)
	}
	if pid != os.Getpid() {
		t.Fatalf("pid file holds %d, want %d", pid, os.Getpid())
	}
}

func TestWritePIDFileEmptyPathIsNoop(t *testing.T) {
	if err := writePIDFile(""); err != nil {
		t.Fatalf("empty path must be a no-op: %v", err)
	}
}

func TestEnsureCurrentLogPointerFollowsLatestRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	logDir := cfg.Paths.LogDir

	first := filepath.Join(logDir, "mural-20260101T000000.000Z.log")
	second := filepath.Join(logDir, "mural-20260102T000000.000Z.log")
	for _, p := range []string{first, second} {
		if err := os.WriteFile(p, []byte("log\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}

	if err := ensureCurrentLogPointer(logDir, first); err != nil {
		t.Fatalf("first pointer update failed: %v", err)
	}
	// A later run replaces the pointer instead of failing on the existing one.
	if err := ensureCurrentLogPointer(logDir, second); err != nil {
		t.Fatalf("second pointer update failed: %v", err)
	}

	current := filepath.Join(logDir, "mural.log")
	resolved, err := filepath.EvalSymlinks(current)
	if err != nil {
		t.Fatalf("resolve %s: %v", current, err)
	}
	want, err := filepath.EvalSymlinks(second)
	if err != nil {
		t.Fatalf("resolve %s: %v", second, err)
	}
	if resolved != want {
		t.Fatalf("mural.log resolves to %s, want %s", resolved, want)
	}
}
