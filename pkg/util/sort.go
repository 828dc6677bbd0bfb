// Package util holds small generic helpers shared by the metadata and
// license packages.
package util

import (
	"cmp"
	"maps"
	"slices"
)

// SortedKeys returns the keys of a map in ascending order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}

// SortByKey sorts s in place by the key extracted from each element.
// Elements with equal keys keep their relative order.
func SortByKey[T any, K cmp.Ordered](s []T, key func(T) K) {
	slices.SortStableFunc(s, func(a, b T) int {
		return cmp.Compare(key(a), key(b))
	})
}
