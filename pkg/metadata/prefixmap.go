package metadata

import (
	"fmt"
	"strings"
)

// PrefixRule rewrites directories starting with Old to start with New.
type PrefixRule struct {
	Old string
	New string
}

// PrefixMap is an ordered list of rules; the first matching rule wins.
// It serves the same purpose as the compiler's -ffile-prefix-map: strip
// build-machine specific directories from recorded paths.
type PrefixMap []PrefixRule

// ParsePrefixMap parses OLD=NEW specifications.
func ParsePrefixMap(specs []string) (PrefixMap, error) {
	var m PrefixMap
	for _, spec := range specs {
		oldPrefix, newPrefix, ok := strings.Cut(spec, "=")
		if !ok || oldPrefix == "" {
			return nil, fmt.Errorf("invalid file prefix map %q: want OLD=NEW", spec)
		}
		m = append(m, PrefixRule{Old: oldPrefix, New: newPrefix})
	}
	return m, nil
}

// Apply rewrites dir with the first rule whose Old prefix matches at a
// path component boundary. Unmatched directories are returned unchanged.
func (m PrefixMap) Apply(dir string) string {
	for _, r := range m {
		if !strings.HasPrefix(dir, r.Old) {
			continue
		}
		rest := dir[len(r.Old):]
		if rest != "" && !strings.HasSuffix(r.Old, "/") && rest[0] != '/' {
			continue
		}
		mapped := r.New + rest
		if mapped == "" {
			return "."
		}
		return mapped
	}
	return dir
}

func (m PrefixMap) String() string {
	parts := make([]string, len(m))
	for i, r := range m {
		parts[i] = r.Old + "=" + r.New
	}
	return strings.Join(parts, ",")
}
