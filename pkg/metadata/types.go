// Package metadata models the build-provenance records a compiler plugin
// embeds into a binary section, one YAML document per compilation unit,
// and reduces them to a single canonical document.
//
// A compilation-unit document looks like:
//
//	---
//	Headers:
//	  ToolName: ESSTRA Core
//	  ToolVersion: 0.1.1
//	  DataFormatVersion: 0.1.0
//	  InputFileName: hello.c
//	SourceFiles:
//	  /home/user/src:
//	    - File: hello.c
//	      SHA1: 4bbb4ba3...
//
// The canonical form has the same shape, with InputFileName turned into a
// list and SourceFiles deduplicated and sorted.
package metadata

import (
	"reflect"

	"gopkg.in/yaml.v3"
)

// Top-level and per-file keys of the wire format.
const (
	KeyHeaders     = "Headers"
	KeySourceFiles = "SourceFiles"
	KeyFile        = "File"
	KeySHA1        = "SHA1"
	KeyLicenseInfo = "LicenseInfo"
)

// KeyInputFileName is the one header that differs per compilation unit.
// Merge accumulates its values into a list instead of requiring equality.
const KeyInputFileName = "InputFileName"

// Document is one compilation unit's metadata, or the canonical merge of
// several of them.
type Document struct {
	Headers     *Headers
	SourceFiles []*Directory

	// Extra holds unknown top-level keys in their original order.
	Extra []KeyValue
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{Headers: NewHeaders()}
}

// Directory groups the file records found in one source directory.
type Directory struct {
	Path  string
	Files []*FileRecord
}

// FileRecord describes one source file.
type FileRecord struct {
	File string
	SHA1 string

	// LicenseInfo is nil until license information has been attached.
	// A non-nil empty slice means a declaration matched but listed no
	// licenses, and is encoded as an empty sequence.
	LicenseInfo []string

	// Extra holds keys this package does not interpret, in their original
	// order, so that decoding then encoding does not drop them.
	Extra []KeyValue
}

// KeyValue is an uninterpreted mapping entry.
type KeyValue struct {
	Key   string
	Value *yaml.Node
}

// Clone returns a deep copy of r.
func (r *FileRecord) Clone() *FileRecord {
	c := &FileRecord{File: r.File, SHA1: r.SHA1}
	if r.LicenseInfo != nil {
		c.LicenseInfo = append([]string{}, r.LicenseInfo...)
	}
	c.Extra = append(c.Extra, r.Extra...)
	return c
}

// Directory returns the directory with the given path, or nil.
func (d *Document) Directory(path string) *Directory {
	for _, dir := range d.SourceFiles {
		if dir.Path == path {
			return dir
		}
	}
	return nil
}

// FileCount returns the number of file records across all directories.
func (d *Document) FileCount() int {
	n := 0
	for _, dir := range d.SourceFiles {
		n += len(dir.Files)
	}
	return n
}

// Walk calls fn for every file record in document order. Records are
// passed by pointer so fn may update them in place.
func (d *Document) Walk(fn func(dir string, rec *FileRecord)) {
	for _, dir := range d.SourceFiles {
		for _, rec := range dir.Files {
			fn(dir.Path, rec)
		}
	}
}

// Headers is an insertion-ordered mapping of header keys to YAML values.
// Values stay as nodes so scalars keep their original spelling when the
// document is encoded again.
type Headers struct {
	keys   []string
	values map[string]*yaml.Node
}

// NewHeaders returns an empty header set.
func NewHeaders() *Headers {
	return &Headers{values: make(map[string]*yaml.Node)}
}

// Len returns the number of keys.
func (h *Headers) Len() int {
	if h == nil {
		return 0
	}
	return len(h.keys)
}

// Keys returns the keys in insertion order.
func (h *Headers) Keys() []string {
	if h == nil {
		return nil
	}
	return append([]string(nil), h.keys...)
}

// Node returns the raw value for key.
func (h *Headers) Node(key string) (*yaml.Node, bool) {
	if h == nil {
		return nil, false
	}
	n, ok := h.values[key]
	return n, ok
}

// Get returns the decoded value for key (string, []any, map[string]any...).
func (h *Headers) Get(key string) (any, bool) {
	n, ok := h.Node(key)
	if !ok {
		return nil, false
	}
	return nodeValue(n), true
}

// Set stores a node under key, appending the key if it is new.
func (h *Headers) Set(key string, value *yaml.Node) {
	if _, ok := h.values[key]; !ok {
		h.keys = append(h.keys, key)
	}
	h.values[key] = value
}

// SetString stores a plain string scalar under key.
func (h *Headers) SetString(key, value string) {
	h.Set(key, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value})
}

// Equal reports whether two header sets hold the same keys in the same
// order with semantically equal values.
func (h *Headers) Equal(other *Headers) bool {
	if h.Len() != other.Len() {
		return false
	}
	if h.Len() == 0 {
		return true
	}
	for i, k := range h.keys {
		if other.keys[i] != k {
			return false
		}
		if !nodesEqual(h.values[k], other.values[k]) {
			return false
		}
	}
	return true
}

// nodeValue decodes n into a plain Go value. Decoding a well-formed node
// cannot fail for an `any` target; a failure yields nil.
func nodeValue(n *yaml.Node) any {
	var v any
	if err := n.Decode(&v); err != nil {
		return nil
	}
	return v
}

func nodesEqual(a, b *yaml.Node) bool {
	return reflect.DeepEqual(nodeValue(a), nodeValue(b))
}

// Equal reports whether two documents are semantically equal: same
// headers, same directories in the same order, same records.
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	if !d.Headers.Equal(other.Headers) {
		return false
	}
	if len(d.SourceFiles) != len(other.SourceFiles) {
		return false
	}
	if !extrasEqual(d.Extra, other.Extra) {
		return false
	}
	for i, dir := range d.SourceFiles {
		o := other.SourceFiles[i]
		if dir.Path != o.Path || len(dir.Files) != len(o.Files) {
			return false
		}
		for j, rec := range dir.Files {
			if !rec.equal(o.Files[j]) {
				return false
			}
		}
	}
	return true
}

func (r *FileRecord) equal(o *FileRecord) bool {
	if r.File != o.File || r.SHA1 != o.SHA1 {
		return false
	}
	if (r.LicenseInfo == nil) != (o.LicenseInfo == nil) {
		return false
	}
	if !reflect.DeepEqual(append([]string{}, r.LicenseInfo...), append([]string{}, o.LicenseInfo...)) {
		return false
	}
	return extrasEqual(r.Extra, o.Extra)
}

func extrasEqual(a, b []KeyValue) bool {
	if len(a) != len(b) {
		return false
	}
	for i, kv := range a {
		if kv.Key != b[i].Key || !nodesEqual(kv.Value, b[i].Value) {
			return false
		}
	}
	return true
}
