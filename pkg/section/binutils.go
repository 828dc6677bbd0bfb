package section

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/albertocavalcante/srcmeta/internal/log"
	"github.com/albertocavalcante/srcmeta/internal/runner"
)

const (
	toolObjcopy = "objcopy"
	toolCp      = "cp"
)

var _ IO = (*Binutils)(nil)

// Binutils implements IO with debug/elf for reads and objcopy for
// everything that modifies a file. Files that are not ELF are read with
// objcopy too.
type Binutils struct {
	run    *runner.Runner
	logger *slog.Logger
}

// Option configures Binutils.
type Option func(*binutilsConfig)

type binutilsConfig struct {
	objcopy string
	cp      string
	logger  *slog.Logger
}

// WithObjcopy sets the objcopy executable, e.g. llvm-objcopy or a cross
// toolchain's objcopy.
func WithObjcopy(path string) Option {
	return func(c *binutilsConfig) { c.objcopy = path }
}

// WithCp sets the cp executable used for backups.
func WithCp(path string) Option {
	return func(c *binutilsConfig) { c.cp = path }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *binutilsConfig) { c.logger = l }
}

// NewBinutils creates an IO backed by the host binutils.
func NewBinutils(opts ...Option) *Binutils {
	var c binutilsConfig
	for _, opt := range opts {
		opt(&c)
	}
	logger := log.OrDiscard(c.logger)
	return &Binutils{
		run: runner.New(
			runner.WithToolPath(toolObjcopy, c.objcopy),
			runner.WithToolPath(toolCp, c.cp),
			runner.WithLogger(logger),
		),
		logger: logger,
	}
}

// ReadSection implements IO.
func (b *Binutils) ReadSection(ctx context.Context, binary, name string) ([]byte, error) {
	if err := CheckFile(binary); err != nil {
		return nil, err
	}

	data, err := readELF(binary, name)
	if !errors.Is(err, errNotELF) {
		return data, err
	}
	b.logger.Debug("not an ELF file, dumping section with objcopy", "path", binary)

	dump, cleanup, err := scratchFile()
	if err != nil {
		return nil, err
	}
	defer cleanup()
	// objcopy always writes an output file; keep it away from the binary.
	out, cleanupOut, err := scratchFile()
	if err != nil {
		return nil, err
	}
	defer cleanupOut()

	_, err = b.run.Run(ctx, toolObjcopy, "--dump-section", name+"="+dump, binary, out)
	if err != nil {
		var exitErr *runner.ExitError
		if errors.As(err, &exitErr) && strings.Contains(exitErr.Stderr, "does not exist") {
			return nil, fmt.Errorf("%s: %s: %w", binary, name, ErrSectionNotFound)
		}
		return nil, toolError("read", toolObjcopy, binary, err)
	}
	return os.ReadFile(dump)
}

// WriteSection implements IO. The section must already exist; its
// contents are replaced, not appended to.
func (b *Binutils) WriteSection(ctx context.Context, binary, name string, data []byte) error {
	if err := CheckFile(binary); err != nil {
		return err
	}

	payload, cleanup, err := scratchFile()
	if err != nil {
		return err
	}
	defer cleanup()
	if err := os.WriteFile(payload, data, 0o600); err != nil {
		return fmt.Errorf("failed to stage section data: %w", err)
	}

	if _, err := b.run.Run(ctx, toolObjcopy, "--update-section", name+"="+payload, binary); err != nil {
		return toolError("write", toolObjcopy, binary, err)
	}
	return checkNotEmpty("write", toolObjcopy, binary)
}

// RemoveSection implements IO.
func (b *Binutils) RemoveSection(ctx context.Context, binary, name string) error {
	if err := CheckFile(binary); err != nil {
		return err
	}
	if _, err := b.run.Run(ctx, toolObjcopy, "--remove-section", name, binary); err != nil {
		return toolError("remove", toolObjcopy, binary, err)
	}
	return checkNotEmpty("remove", toolObjcopy, binary)
}

// CopyFile implements IO.
func (b *Binutils) CopyFile(ctx context.Context, src, dst string) error {
	if err := CheckFile(src); err != nil {
		return err
	}
	if _, err := b.run.Run(ctx, toolCp, "-a", src, dst); err != nil {
		return toolError("copy", toolCp, src, err)
	}
	return nil
}

// Exists implements IO.
func (b *Binutils) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// scratchFile creates an exclusive temporary file and returns its path
// and a function removing it.
func scratchFile() (string, func(), error) {
	f, err := os.CreateTemp("", "srcmeta-*.section")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create scratch file: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", nil, fmt.Errorf("failed to create scratch file: %w", err)
	}
	return name, func() { _ = os.Remove(name) }, nil
}

func toolError(op, tool, path string, err error) error {
	te := &ExternalToolError{Op: op, Tool: tool, Path: path, Code: -1, Err: err}
	var exitErr *runner.ExitError
	if errors.As(err, &exitErr) {
		te.Code = exitErr.Code
		te.Stderr = exitErr.Stderr
	}
	return te
}

// checkNotEmpty treats a binary truncated to nothing as a tool failure.
func checkNotEmpty(op, tool, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return toolError(op, tool, path, err)
	}
	if info.Size() == 0 {
		return toolError(op, tool, path, errors.New("tool left an empty file"))
	}
	return nil
}
