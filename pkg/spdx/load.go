package spdx

import (
	"bytes"
	"context"

	"github.com/viant/afs"
)

// Load reads the declaration file at location, which may be a local path or
// any URL the storage service understands, and parses it.
func Load(ctx context.Context, fs afs.Service, location string) ([]*Record, error) {
	if fs == nil {
		fs = afs.New()
	}
	content, err := fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, &ParseError{File: location, Msg: "cannot read", Err: err}
	}
	return Parse(bytes.NewReader(content), location)
}

// LoadIndex loads every location into one index. The first failure aborts.
func LoadIndex(ctx context.Context, fs afs.Service, locations ...string) (*Index, error) {
	if fs == nil {
		fs = afs.New()
	}
	idx := NewIndex()
	for _, loc := range locations {
		records, err := Load(ctx, fs, loc)
		if err != nil {
			return nil, err
		}
		idx.Add(records...)
	}
	return idx, nil
}
