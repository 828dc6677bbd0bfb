// Package xref attaches license information from an SPDX index to embedded
// file records.
package xref

import (
	"context"
	"log/slog"
	"path"

	"github.com/albertocavalcante/srcmeta/internal/log"
	"github.com/albertocavalcante/srcmeta/pkg/metadata"
	"github.com/albertocavalcante/srcmeta/pkg/spdx"
)

// Stats counts the outcome of an Attach call.
type Stats struct {
	Files    int
	Attached int
	// Unmatched counts checksum hits whose candidates were all rejected by
	// the strategy.
	Unmatched int
	// Missing counts files whose checksum is not in the index.
	Missing int
}

// Matcher joins documents against an index.
type Matcher struct {
	Index    *spdx.Index
	Strategy Strategy
	Logger   *slog.Logger
}

// Attach overwrites LicenseInfo of every record in doc that has a matching
// declaration. Among the candidates sharing a checksum, the first one in
// declaration order accepted by the strategy wins. Records without a match
// are left as they are.
func (m *Matcher) Attach(doc *metadata.Document) Stats {
	strategy := m.Strategy
	if strategy == nil {
		strategy = BaseName{}
	}
	logger := log.OrDiscard(m.Logger)

	var st Stats
	doc.Walk(func(dir string, rec *metadata.FileRecord) {
		st.Files++
		actual := path.Join(dir, rec.File)

		candidates := m.Index.Lookup(rec.SHA1)
		if len(candidates) == 0 {
			st.Missing++
			logger.Log(context.Background(), log.LevelTrace, "checksum not declared", "path", actual, "sha1", rec.SHA1)
			return
		}
		for _, c := range candidates {
			if strategy.Match(c.FileName(), actual) {
				rec.LicenseInfo = c.LicenseInfoInFile()
				st.Attached++
				logger.Debug("attached license info",
					"path", actual,
					"declared", c.FileName(),
					"licenses", rec.LicenseInfo)
				return
			}
		}
		st.Unmatched++
		logger.Debug("checksum found but no declared name matched",
			"path", actual,
			"sha1", rec.SHA1,
			"candidates", len(candidates),
			"strategy", strategy.Name())
	})
	return st
}

// Attach runs a Matcher with the given index and strategy.
func Attach(doc *metadata.Document, idx *spdx.Index, strategy Strategy) Stats {
	m := &Matcher{Index: idx, Strategy: strategy}
	return m.Attach(doc)
}
