package xref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseName(t *testing.T) {
	s := BaseName{}
	assert.True(t, s.Match("./x/a.c", "/src/a.c"))
	assert.True(t, s.Match("a.c", "/a.c"))
	assert.False(t, s.Match("./x/a.c", "/src/b.c"))
	assert.False(t, s.Match("a.c", "/src/a.c/b"))
}

func TestPathSuffix(t *testing.T) {
	tests := []struct {
		declared string
		actual   string
		want     bool
	}{
		{"./src/a.c", "/build/src/a.c", true},
		{"src/a.c", "/build/src/a.c", true},
		{"a.c", "/build/src/a.c", true},
		{"/build/src/a.c", "/build/src/a.c", true},
		{"./x/a.c", "/build/src/a.c", false},
		{"rc/a.c", "/build/src/a.c", false},
		{"/other/src/a.c", "/build/src/a.c", false},
		{"./src/../src/a.c", "/build/src/a.c", true},
	}

	for _, tt := range tests {
		t.Run(tt.declared+"|"+tt.actual, func(t *testing.T) {
			assert.Equal(t, tt.want, PathSuffix{}.Match(tt.declared, tt.actual))
		})
	}
}

func TestStrategyByName(t *testing.T) {
	for name, want := range map[string]string{"": "basename", "basename": "basename", "suffix": "suffix"} {
		s, err := StrategyByName(name)
		require.NoError(t, err)
		assert.Equal(t, want, s.Name())
	}

	_, err := StrategyByName("fuzzy")
	assert.ErrorContains(t, err, "fuzzy")
}
