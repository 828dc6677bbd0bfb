package metadata

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// DocumentSeparator starts every document in the section stream.
const DocumentSeparator = "---"

// Decode parses raw section bytes into compilation-unit documents in
// stream order. NUL bytes stand for line breaks. Empty documents, such as
// the newline padding a compiler adds for alignment, are skipped.
func Decode(raw []byte) ([]*Document, error) {
	if !utf8.Valid(raw) {
		return nil, &DecodeError{Doc: -1, Msg: "section data is not valid UTF-8"}
	}

	text := bytes.ReplaceAll(raw, []byte{0}, []byte{'\n'})
	dec := yaml.NewDecoder(bytes.NewReader(text))

	var docs []*Document
	for i := 0; ; i++ {
		var root yaml.Node
		err := dec.Decode(&root)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &DecodeError{Doc: i, Err: err}
		}

		doc, err := documentFromNode(&root)
		if err != nil {
			return nil, &DecodeError{Doc: i, Err: err}
		}
		if doc != nil {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// Encode renders doc as a single YAML document with a leading separator,
// so that encoded sections can be concatenated by a linker and still be
// decoded as a stream. Headers keep insertion order; directories and files
// are written in document order, which for Merge output is sorted.
// Line breaks are plain newlines.
func Encode(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(DocumentSeparator + "\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(documentNode(doc)); err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeAll renders several documents as one stream.
func EncodeAll(docs []*Document) ([]byte, error) {
	var out []byte
	for _, doc := range docs {
		b, err := Encode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

func documentFromNode(root *yaml.Node) (*Document, error) {
	n := root
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return nil, nil
		}
		n = n.Content[0]
	}
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping, got %s", n.Line, kindName(n))
	}

	doc := NewDocument()
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], n.Content[i+1]
		switch key.Value {
		case KeyHeaders:
			if err := decodeHeaders(doc.Headers, value); err != nil {
				return nil, err
			}
		case KeySourceFiles:
			dirs, err := decodeSourceFiles(value)
			if err != nil {
				return nil, err
			}
			doc.SourceFiles = dirs
		default:
			doc.Extra = append(doc.Extra, KeyValue{Key: key.Value, Value: value})
		}
	}
	return doc, nil
}

func decodeHeaders(h *Headers, n *yaml.Node) error {
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: %s: expected a mapping, got %s", n.Line, KeyHeaders, kindName(n))
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		h.Set(n.Content[i].Value, n.Content[i+1])
	}
	return nil
}

func decodeSourceFiles(n *yaml.Node) ([]*Directory, error) {
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: %s: expected a mapping, got %s", n.Line, KeySourceFiles, kindName(n))
	}

	var dirs []*Directory
	for i := 0; i+1 < len(n.Content); i += 2 {
		dir := &Directory{Path: n.Content[i].Value}
		list := n.Content[i+1]
		if isNull(list) {
			continue
		}
		if list.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("line %d: directory %q: expected a list, got %s", list.Line, dir.Path, kindName(list))
		}
		for _, item := range list.Content {
			rec, err := decodeFileRecord(item)
			if err != nil {
				return nil, fmt.Errorf("directory %q: %w", dir.Path, err)
			}
			dir.Files = append(dir.Files, rec)
		}
		if len(dir.Files) > 0 {
			dirs = append(dirs, dir)
		}
	}
	return dirs, nil
}

func decodeFileRecord(n *yaml.Node) (*FileRecord, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a file record mapping, got %s", n.Line, kindName(n))
	}

	rec := &FileRecord{}
	var hasFile, hasSum bool
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], n.Content[i+1]
		switch key.Value {
		case KeyFile:
			if value.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: %s must be a scalar", value.Line, KeyFile)
			}
			rec.File, hasFile = value.Value, true
		case KeySHA1:
			if value.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: %s must be a scalar", value.Line, KeySHA1)
			}
			rec.SHA1, hasSum = value.Value, true
		case KeyLicenseInfo:
			info, err := decodeStringList(value)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", value.Line, KeyLicenseInfo, err)
			}
			rec.LicenseInfo = info
		default:
			rec.Extra = append(rec.Extra, KeyValue{Key: key.Value, Value: value})
		}
	}
	if !hasFile {
		return nil, fmt.Errorf("line %d: file record without %s", n.Line, KeyFile)
	}
	if !hasSum {
		return nil, fmt.Errorf("line %d: file record %q without %s", n.Line, rec.File, KeySHA1)
	}
	return rec, nil
}

// decodeStringList accepts a sequence of scalars or a single scalar.
func decodeStringList(n *yaml.Node) ([]string, error) {
	switch {
	case isNull(n):
		return []string{}, nil
	case n.Kind == yaml.ScalarNode:
		return []string{n.Value}, nil
	case n.Kind == yaml.SequenceNode:
		out := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("expected scalar items, got %s", kindName(item))
			}
			out = append(out, item.Value)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a list, got %s", kindName(n))
}

func documentNode(doc *Document) *yaml.Node {
	root := &yaml.Node{Kind: yaml.MappingNode}

	if doc.Headers.Len() > 0 {
		headers := &yaml.Node{Kind: yaml.MappingNode}
		for _, k := range doc.Headers.keys {
			headers.Content = append(headers.Content, strNode(k), doc.Headers.values[k])
		}
		root.Content = append(root.Content, strNode(KeyHeaders), headers)
	}

	files := &yaml.Node{Kind: yaml.MappingNode}
	for _, dir := range doc.SourceFiles {
		if len(dir.Files) == 0 {
			continue
		}
		list := &yaml.Node{Kind: yaml.SequenceNode}
		for _, rec := range dir.Files {
			list.Content = append(list.Content, fileRecordNode(rec))
		}
		files.Content = append(files.Content, strNode(dir.Path), list)
	}
	if len(files.Content) == 0 {
		files.Style = yaml.FlowStyle
	}
	root.Content = append(root.Content, strNode(KeySourceFiles), files)

	for _, kv := range doc.Extra {
		root.Content = append(root.Content, strNode(kv.Key), kv.Value)
	}
	return root
}

func fileRecordNode(rec *FileRecord) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	n.Content = append(n.Content,
		strNode(KeyFile), strNode(rec.File),
		strNode(KeySHA1), strNode(rec.SHA1),
	)
	if rec.LicenseInfo != nil {
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, lic := range rec.LicenseInfo {
			seq.Content = append(seq.Content, strNode(lic))
		}
		if len(seq.Content) == 0 {
			seq.Style = yaml.FlowStyle
		}
		n.Content = append(n.Content, strNode(KeyLicenseInfo), seq)
	}
	for _, kv := range rec.Extra {
		n.Content = append(n.Content, strNode(kv.Key), kv.Value)
	}
	return n
}

// strNode builds a string scalar; the encoder quotes it when the plain
// form would resolve to another type (e.g. an all-digit checksum).
func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func isNull(n *yaml.Node) bool {
	if n == nil {
		return true
	}
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return true
	}
	return n.Kind == 0
}

func kindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "list"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return fmt.Sprintf("scalar %q", n.Value)
	case yaml.AliasNode:
		return "alias"
	}
	return "nothing"
}
