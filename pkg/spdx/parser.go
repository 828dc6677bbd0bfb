// Package spdx reads SPDX tag/value documents and indexes their file
// records by checksum.
//
// Only the subset needed to attach license information to source files is
// understood. A document is a sequence of "Tag: value" lines; values that
// open with <text> and do not close on the same line continue until a line
// ending in </text>. FileName and LicenseID lines start new groups, and only
// FileName groups are returned as records:
//
//	FileName: ./src/hello.c
//	FileChecksum: SHA1: 7d0f6a3c0e1f4a2b9c8d7e6f5a4b3c2d1e0f9a8b
//	LicenseConcluded: MIT
//	LicenseInfoInFile: MIT
//	FileCopyrightText: <text>
//	Copyright (c) 2024 Example
//	</text>
package spdx

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Well-known tags.
const (
	TagFileName          = "FileName"
	TagFileChecksum      = "FileChecksum"
	TagLicenseInfoInFile = "LicenseInfoInFile"
	TagLicenseID         = "LicenseID"
)

// AlgorithmSHA1 is the checksum algorithm file records are indexed by.
const AlgorithmSHA1 = "SHA1"

const (
	textBegin = "<text>"
	textEnd   = "</text>"

	maxLineSize = 1 << 20
)

var (
	tagValueRe = regexp.MustCompile(`(?i)^([a-z0-9-]+):\s*(.*)$`)
	checksumRe = regexp.MustCompile(`^([A-Za-z0-9-]+):\s*([0-9A-Fa-f]+)$`)
)

// Checksum is one parsed FileChecksum entry.
type Checksum struct {
	Algorithm string
	Value     string
}

// Record is a FileName-headed group of tags. Tag lookups are case
// insensitive; values keep their order of appearance.
type Record struct {
	// Line is where the FileName tag appeared.
	Line int

	tags   []string
	values map[string][]string
	sums   []Checksum
}

func newRecord(line int) *Record {
	return &Record{Line: line, values: make(map[string][]string)}
}

func (r *Record) add(tag, value string) {
	key := strings.ToLower(tag)
	if _, ok := r.values[key]; !ok {
		r.tags = append(r.tags, tag)
	}
	r.values[key] = append(r.values[key], value)
}

// Values returns every value recorded for tag.
func (r *Record) Values(tag string) []string {
	return r.values[strings.ToLower(tag)]
}

// Tags returns the distinct tags of the record as first spelled.
func (r *Record) Tags() []string {
	return r.tags
}

// FileName returns the declared file name.
func (r *Record) FileName() string {
	if v := r.Values(TagFileName); len(v) > 0 {
		return v[0]
	}
	return ""
}

// Checksums returns the parsed FileChecksum entries.
func (r *Record) Checksums() []Checksum {
	return r.sums
}

// LicenseInfoInFile returns the declared licenses. The result is never nil,
// so a record without the tag attaches an empty list.
func (r *Record) LicenseInfoInFile() []string {
	v := r.Values(TagLicenseInfoInFile)
	out := make([]string, len(v))
	copy(out, v)
	return out
}

type tagValue struct {
	tag   string
	value string
	line  int
}

// Parse reads a tag/value document and returns its file records in order.
// name is used in error messages only.
func Parse(r io.Reader, name string) ([]*Record, error) {
	pairs, err := scanTagValues(r, name)
	if err != nil {
		return nil, err
	}

	var (
		records []*Record
		current *Record
	)
	for _, p := range pairs {
		switch {
		case strings.EqualFold(p.tag, TagFileName):
			current = newRecord(p.line)
			records = append(records, current)
		case strings.EqualFold(p.tag, TagLicenseID):
			// license groups are not file records
			current = nil
		}
		if current == nil {
			continue
		}

		current.add(p.tag, p.value)
		if strings.EqualFold(p.tag, TagFileChecksum) {
			m := checksumRe.FindStringSubmatch(p.value)
			if m == nil {
				return nil, &ParseError{
					File: name,
					Line: p.line,
					Msg:  fmt.Sprintf("malformed %s %q: want ALGO: hex", TagFileChecksum, truncate(p.value)),
				}
			}
			current.sums = append(current.sums, Checksum{Algorithm: m[1], Value: strings.ToLower(m[2])})
		}
	}
	return records, nil
}

// scanTagValues splits the input into tag/value pairs, joining multi-line
// <text> values.
func scanTagValues(r io.Reader, name string) ([]tagValue, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		pairs   []tagValue
		pending *tagValue
		text    strings.Builder
		lineNo  int
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSuffix(sc.Text(), "\r")

		if pending != nil {
			if strings.HasSuffix(strings.TrimRight(line, " \t"), textEnd) {
				text.WriteString(strings.TrimRight(line, " \t"))
				pending.value = stripText(text.String())
				pairs = append(pairs, *pending)
				pending = nil
				text.Reset()
			} else {
				text.WriteString(line)
				text.WriteByte('\n')
			}
			continue
		}

		m := tagValueRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		tv := tagValue{tag: m[1], value: strings.TrimSpace(m[2]), line: lineNo}
		if strings.HasPrefix(tv.value, textBegin) {
			if strings.HasSuffix(tv.value, textEnd) {
				tv.value = stripText(tv.value)
			} else {
				pending = &tv
				text.WriteString(tv.value)
				text.WriteByte('\n')
				continue
			}
		}
		pairs = append(pairs, tv)
	}
	if err := sc.Err(); err != nil {
		return nil, &ParseError{File: name, Line: lineNo, Err: err}
	}
	if pending != nil {
		return nil, &ParseError{
			File: name,
			Line: pending.line,
			Msg:  "unterminated " + textBegin + " value for " + pending.tag,
		}
	}
	return pairs, nil
}

func stripText(s string) string {
	s = strings.ReplaceAll(s, textBegin, "")
	s = strings.ReplaceAll(s, textEnd, "")
	return strings.TrimSpace(s)
}

func truncate(s string) string {
	const limit = 64
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
