package xref

import (
	"fmt"
	"path"
	"strings"
)

// Strategy decides whether a declared file name refers to an embedded file.
// declared comes from the declaration file; actual is the embedded
// directory joined with the file name.
type Strategy interface {
	Match(declared, actual string) bool
	Name() string
}

// BaseName matches when the final path components are equal. It ignores
// directories entirely, so two different files with the same name and
// checksum are indistinguishable.
type BaseName struct{}

func (BaseName) Match(declared, actual string) bool {
	return path.Base(declared) == path.Base(actual)
}

func (BaseName) Name() string { return "basename" }

// PathSuffix matches when the declared path, without a leading "./", equals
// the actual path or is a suffix of it starting at a path separator.
type PathSuffix struct{}

func (PathSuffix) Match(declared, actual string) bool {
	declared = path.Clean(strings.TrimPrefix(declared, "./"))
	actual = path.Clean(actual)
	if declared == actual {
		return true
	}
	if strings.HasPrefix(declared, "/") || !strings.HasSuffix(actual, declared) {
		return false
	}
	return actual[len(actual)-len(declared)-1] == '/'
}

func (PathSuffix) Name() string { return "suffix" }

// StrategyByName returns the strategy registered under name. An empty name
// selects BaseName.
func StrategyByName(name string) (Strategy, error) {
	switch name {
	case "", "basename":
		return BaseName{}, nil
	case "suffix":
		return PathSuffix{}, nil
	default:
		return nil, fmt.Errorf("unknown match strategy %q (want basename or suffix)", name)
	}
}
