package runner_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/albertocavalcante/srcmeta/internal/runner"
)

// writeTool creates a fake executable shell script.
func writeTool(t *testing.T, dir, name, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tools are shell scripts")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFind_ConfiguredPath(t *testing.T) {
	tmpDir := t.TempDir()
	objcopy := writeTool(t, tmpDir, "llvm-objcopy", "exit 0\n")

	r := runner.New(runner.WithToolPath("objcopy", objcopy))
	got, err := r.Find("objcopy")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got != objcopy {
		t.Errorf("Find() = %q, want %q", got, objcopy)
	}
}

func TestFind_PathLookup(t *testing.T) {
	tmpDir := t.TempDir()
	objcopy := writeTool(t, tmpDir, "objcopy", "exit 0\n")
	t.Setenv("PATH", tmpDir)

	r := runner.New()
	got, err := r.Find("objcopy")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got != objcopy {
		t.Errorf("Find() = %q, want %q", got, objcopy)
	}
}

func TestFind_NotFound(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("PATH", tmpDir)

	tests := []struct {
		name string
		opts []runner.Option
	}{
		{"not in PATH", nil},
		{"missing configured file", []runner.Option{runner.WithToolPath("objcopy", filepath.Join(tmpDir, "nope"))}},
		{"configured directory", []runner.Option{runner.WithToolPath("objcopy", tmpDir+string(filepath.Separator))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runner.New(tt.opts...).Find("objcopy")
			if !errors.Is(err, runner.ErrToolNotFound) {
				t.Errorf("Find() error = %v, want ErrToolNotFound", err)
			}
		})
	}
}

func TestRun_CapturesOutput(t *testing.T) {
	tmpDir := t.TempDir()
	tool := writeTool(t, tmpDir, "echoargs", "echo \"$@\"\necho warn >&2\n")

	r := runner.New(runner.WithToolPath("echoargs", tool))
	out, err := r.Run(context.Background(), "echoargs", "-R", ".esstra", "bin")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := strings.TrimSpace(string(out.Stdout)); got != "-R .esstra bin" {
		t.Errorf("stdout = %q", got)
	}
	if got := strings.TrimSpace(string(out.Stderr)); got != "warn" {
		t.Errorf("stderr = %q", got)
	}
}

func TestRun_ExitError(t *testing.T) {
	tmpDir := t.TempDir()
	tool := writeTool(t, tmpDir, "objcopy", "echo \"section '.esstra' not found\" >&2\nexit 3\n")

	r := runner.New(runner.WithToolPath("objcopy", tool))
	_, err := r.Run(context.Background(), "objcopy", "--dump-section", ".esstra=x", "bin")

	var exitErr *runner.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Run() error = %v, want *ExitError", err)
	}
	if exitErr.Code != 3 {
		t.Errorf("Code = %d, want 3", exitErr.Code)
	}
	if !strings.Contains(exitErr.Error(), "not found") {
		t.Errorf("Error() = %q, want stderr included", exitErr.Error())
	}
}

func TestRun_ContextCanceled(t *testing.T) {
	tmpDir := t.TempDir()
	tool := writeTool(t, tmpDir, "slow", "sleep 5\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := runner.New(runner.WithToolPath("slow", tool))
	if _, err := r.Run(ctx, "slow"); err == nil {
		t.Error("Run() expected error for canceled context")
	}
}
