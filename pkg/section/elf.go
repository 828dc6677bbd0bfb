package section

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"
)

// errNotELF means the file must be handled by the external tool.
var errNotELF = errors.New("not an ELF file")

// readELF returns the contents of section name. Compressed sections are
// decompressed.
func readELF(path, name string) ([]byte, error) {
	f, err := elf.Open(path)
	if err != nil {
		var formatErr *elf.FormatError
		if errors.As(err, &formatErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, errNotELF
		}
		return nil, err
	}
	defer f.Close()

	s := f.Section(name)
	if s == nil {
		return nil, fmt.Errorf("%s: %s: %w", path, name, ErrSectionNotFound)
	}
	if s.Type == elf.SHT_NOBITS {
		return nil, fmt.Errorf("%s: %s has no file contents: %w", path, name, ErrSectionNotFound)
	}
	data, err := s.Data()
	if err != nil {
		return nil, fmt.Errorf("%s: read section %s: %w", path, name, err)
	}
	return data, nil
}
