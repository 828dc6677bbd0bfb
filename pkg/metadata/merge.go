package metadata

import (
	"log/slog"
	"strings"

	"github.com/albertocavalcante/srcmeta/internal/log"
	"github.com/albertocavalcante/srcmeta/pkg/util"
	"gopkg.in/yaml.v3"
)

// MergeOptions configures a Merger.
type MergeOptions struct {
	// PrefixMap rewrites directory keys before identities are computed.
	PrefixMap PrefixMap

	// ReportConflicts records a ChecksumConflict whenever a file identity
	// reappears with a different checksum. The first record still wins.
	ReportConflicts bool

	Logger *slog.Logger
}

// ChecksumConflict describes a file identity seen with two checksums.
type ChecksumConflict struct {
	Dir     string
	File    string
	Kept    string
	Dropped string
	// Unit is the index of the document carrying the dropped checksum.
	Unit int
}

// Merger reduces compilation-unit documents to one canonical document.
type Merger struct {
	opts      MergeOptions
	logger    *slog.Logger
	conflicts []ChecksumConflict
}

// NewMerger creates a Merger with the given options.
func NewMerger(opts MergeOptions) *Merger {
	return &Merger{
		opts:   opts,
		logger: log.OrDiscard(opts.Logger),
	}
}

// Conflicts returns the checksum conflicts found by the last Merge call.
// It is empty unless ReportConflicts is set.
func (m *Merger) Conflicts() []ChecksumConflict {
	return m.conflicts
}

// Merge reduces docs with default options.
func Merge(docs []*Document) (*Document, error) {
	return NewMerger(MergeOptions{}).Merge(docs)
}

// identity is what makes two file records "the same file". The checksum is
// not part of it.
type identity struct {
	dir  string
	file string
}

// Merge walks docs in order. Headers: InputFileName values are collected
// into a list, any other key must carry the same value in every document
// that has it. Source files: the first record for each (directory, File)
// is kept and later ones are dropped. The result has directories sorted by
// path and files sorted by name, with empty directories omitted. Input
// documents are not modified.
func (m *Merger) Merge(docs []*Document) (*Document, error) {
	m.conflicts = nil
	out := NewDocument()

	var inputs *yaml.Node
	for i, doc := range docs {
		for _, key := range doc.Headers.Keys() {
			node, _ := doc.Headers.Node(key)
			if key == KeyInputFileName {
				if inputs == nil {
					inputs = &yaml.Node{Kind: yaml.SequenceNode}
					out.Headers.Set(key, inputs)
				}
				inputs.Content = append(inputs.Content, flatten(node)...)
				continue
			}
			existing, ok := out.Headers.Node(key)
			if !ok {
				out.Headers.Set(key, node)
				continue
			}
			if !nodesEqual(existing, node) {
				return nil, &HeaderConflictError{
					Key:      key,
					Existing: nodeValue(existing),
					Incoming: nodeValue(node),
					Unit:     i,
				}
			}
		}

		for _, kv := range doc.Extra {
			if !hasExtra(out.Extra, kv.Key) {
				out.Extra = append(out.Extra, kv)
			}
		}
	}

	seen := make(map[identity]*FileRecord)
	dirs := make(map[string]*Directory)
	for i, doc := range docs {
		for _, dir := range doc.SourceFiles {
			dirPath := normalizeDir(m.opts.PrefixMap.Apply(dir.Path))
			for _, rec := range dir.Files {
				id := identity{dir: dirPath, file: rec.File}
				if kept, ok := seen[id]; ok {
					if kept.SHA1 != rec.SHA1 {
						m.checksumConflict(id, kept.SHA1, rec.SHA1, i)
					}
					continue
				}

				c := rec.Clone()
				seen[id] = c
				d, ok := dirs[dirPath]
				if !ok {
					d = &Directory{Path: dirPath}
					dirs[dirPath] = d
				}
				d.Files = append(d.Files, c)
			}
		}
	}

	for _, p := range util.SortedKeys(dirs) {
		d := dirs[p]
		util.SortByKey(d.Files, func(r *FileRecord) string { return r.File })
		out.SourceFiles = append(out.SourceFiles, d)
	}

	m.logger.Debug("merged metadata",
		"units", len(docs),
		"directories", len(out.SourceFiles),
		"files", out.FileCount(),
		"checksum_conflicts", len(m.conflicts))
	return out, nil
}

func (m *Merger) checksumConflict(id identity, kept, dropped string, unit int) {
	if !m.opts.ReportConflicts {
		return
	}
	m.conflicts = append(m.conflicts, ChecksumConflict{
		Dir:     id.dir,
		File:    id.file,
		Kept:    kept,
		Dropped: dropped,
		Unit:    unit,
	})
	m.logger.Warn("checksum differs for already merged file",
		"dir", id.dir,
		"file", id.file,
		"kept", kept,
		"dropped", dropped,
		"unit", unit)
}

// normalizeDir drops repeated slashes, "." segments and a trailing slash.
// ".." segments are kept: the directory may be reached through a symlink,
// so "/a/b/../c" and "/a/c" stay distinct keys.
func normalizeDir(dir string) string {
	if dir == "" {
		return dir
	}
	parts := strings.Split(dir, "/")
	kept := parts[:0]
	for _, p := range parts {
		if p != "" && p != "." {
			kept = append(kept, p)
		}
	}
	joined := strings.Join(kept, "/")
	if strings.HasPrefix(dir, "/") {
		return "/" + joined
	}
	if joined == "" {
		return "."
	}
	return joined
}

// flatten turns an InputFileName value into list items, so that merging
// an already merged document keeps a flat list.
func flatten(n *yaml.Node) []*yaml.Node {
	if n.Kind == yaml.SequenceNode {
		return n.Content
	}
	return []*yaml.Node{n}
}

func hasExtra(kvs []KeyValue, key string) bool {
	for _, kv := range kvs {
		if kv.Key == key {
			return true
		}
	}
	return false
}
