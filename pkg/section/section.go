// Package section reads and rewrites named sections of object files.
package section

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// DefaultName is the section the compiler plugin records metadata in.
const DefaultName = ".esstra"

// IO is the capability the rest of srcmeta needs from an object file.
type IO interface {
	// ReadSection returns the raw contents of section name.
	ReadSection(ctx context.Context, binary, name string) ([]byte, error)
	// WriteSection replaces the contents of an existing section.
	WriteSection(ctx context.Context, binary, name string, data []byte) error
	// RemoveSection deletes the section.
	RemoveSection(ctx context.Context, binary, name string) error
	// CopyFile copies src to dst preserving mode and timestamps.
	CopyFile(ctx context.Context, src, dst string) error
	// Exists reports whether anything is present at path.
	Exists(ctx context.Context, path string) (bool, error)
}

// CheckFile verifies path names an existing regular file.
func CheckFile(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", path, ErrFileNotFound)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: %w", path, ErrNotAFile)
	}
	return nil
}
