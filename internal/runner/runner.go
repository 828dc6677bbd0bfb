// Package runner locates and executes the external binutils the section
// layer delegates to.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/albertocavalcante/srcmeta/internal/log"
)

// ErrToolNotFound is returned when a tool binary cannot be located.
var ErrToolNotFound = errors.New("tool not found")

// ExitError reports a tool that ran but exited with a non-zero status.
type ExitError struct {
	Tool   string
	Args   []string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Tool, e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// Output holds what a successful run wrote.
type Output struct {
	Stdout []byte
	Stderr []byte
}

// Runner resolves tool names to executables and runs them synchronously.
type Runner struct {
	paths    map[string]string
	lookPath func(string) (string, error)
	logger   *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithToolPath overrides where tool is found. path may be a bare command
// name, which is then looked up in PATH.
func WithToolPath(tool, path string) Option {
	return func(r *Runner) {
		if path != "" {
			r.paths[tool] = path
		}
	}
}

// WithLogger sets the logger for command tracing.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// New creates a new Runner with the given options.
func New(opts ...Option) *Runner {
	r := &Runner{
		paths:    make(map[string]string),
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = log.OrDiscard(r.logger)
	return r
}

// Find locates the executable for tool using the following search order:
// 1. A configured path containing a separator, used as is
// 2. The configured name, or the tool name, looked up in PATH
func (r *Runner) Find(tool string) (string, error) {
	name := tool
	if p, ok := r.paths[tool]; ok {
		name = p
	}

	if strings.ContainsRune(name, filepath.Separator) {
		if !isExecutable(name) {
			return "", fmt.Errorf("%s at %s: %w", tool, name, ErrToolNotFound)
		}
		return name, nil
	}

	path, err := r.lookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s (looked up %q in PATH): %w", tool, name, ErrToolNotFound)
	}
	return path, nil
}

// Run executes tool with args and waits for it. A non-zero exit status is
// returned as *ExitError.
func (r *Runner) Run(ctx context.Context, tool string, args ...string) (*Output, error) {
	path, err := r.Find(tool)
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	r.logger.Debug("ran external tool",
		"tool", tool,
		"path", path,
		"args", args,
		"duration", time.Since(start))

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ExitError{
				Tool:   tool,
				Args:   args,
				Code:   exitErr.ExitCode(),
				Stderr: stderr.String(),
			}
		}
		return nil, fmt.Errorf("failed to run %s: %w", tool, err)
	}
	return &Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, nil
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
