package spdx

import "strings"

// Index maps lowercase SHA1 hex digests to the records declaring them.
// Buckets keep insertion order. An Index is safe for concurrent reads once
// it is no longer being added to.
type Index struct {
	buckets map[string][]*Record
	records int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{buckets: make(map[string][]*Record)}
}

// Add indexes records under every SHA1 checksum they declare and returns
// how many records were indexed. Records without a SHA1 checksum cannot be
// matched and are skipped.
func (x *Index) Add(records ...*Record) int {
	added := 0
	for _, r := range records {
		indexed := false
		for _, sum := range r.Checksums() {
			if !strings.EqualFold(sum.Algorithm, AlgorithmSHA1) {
				continue
			}
			x.buckets[sum.Value] = append(x.buckets[sum.Value], r)
			indexed = true
		}
		if indexed {
			added++
		}
	}
	x.records += added
	return added
}

// Lookup returns the records declared with the given SHA1 digest.
func (x *Index) Lookup(sha1 string) []*Record {
	if x == nil {
		return nil
	}
	return x.buckets[strings.ToLower(sha1)]
}

// Len returns the number of distinct checksums.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.buckets)
}

// Records returns the number of indexed records.
func (x *Index) Records() int {
	if x == nil {
		return 0
	}
	return x.records
}
