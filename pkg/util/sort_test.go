package util

import (
	"slices"
	"testing"
)

func TestSortedKeys(t *testing.T) {
	m := map[string]int{"/usr/include": 1, "/home/src": 2, "/opt": 3}
	got := SortedKeys(m)
	want := []string{"/home/src", "/opt", "/usr/include"}
	if !slices.Equal(got, want) {
		t.Errorf("SortedKeys() = %v, want %v", got, want)
	}
}

func TestSortedKeys_Empty(t *testing.T) {
	if got := SortedKeys(map[string]bool{}); len(got) != 0 {
		t.Errorf("SortedKeys(empty) = %v, want empty", got)
	}
}

func TestSortByKey_Stable(t *testing.T) {
	type item struct {
		name string
		seq  int
	}
	items := []item{{"b", 0}, {"a", 1}, {"b", 2}, {"a", 3}}
	SortByKey(items, func(i item) string { return i.name })

	want := []item{{"a", 1}, {"a", 3}, {"b", 0}, {"b", 2}}
	if !slices.Equal(items, want) {
		t.Errorf("SortByKey() = %v, want %v", items, want)
	}
}
