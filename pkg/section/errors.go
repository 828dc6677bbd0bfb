package section

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFileNotFound is returned when the binary does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrNotAFile is returned when the path is not a regular file.
	ErrNotAFile = errors.New("not a regular file")
	// ErrSectionNotFound is returned when the binary has no such section.
	ErrSectionNotFound = errors.New("section not found")
)

// ExternalToolError reports a failed section operation delegated to an
// external tool. The binary is left as the tool left it.
type ExternalToolError struct {
	Op     string // read, write, remove or copy
	Tool   string
	Path   string
	Code   int // -1 when the tool did not run to completion
	Stderr string
	Err    error
}

func (e *ExternalToolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s", e.Op, e.Path, e.Tool)
	if e.Code >= 0 {
		fmt.Fprintf(&b, " exited with status %d", e.Code)
	} else {
		b.WriteString(" failed")
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		b.WriteString(": ")
		b.WriteString(s)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ExternalToolError) Unwrap() error {
	return e.Err
}
