package cli

import (
	"context"
	"log/slog"

	"github.com/albertocavalcante/srcmeta/pkg/metadata"
	"github.com/albertocavalcante/srcmeta/pkg/spdx"
	"github.com/albertocavalcante/srcmeta/pkg/xref"
)

// rewriter produces the new document of a binary: the merged units and,
// with a matcher, the attached license information.
type rewriter struct {
	merger  *metadata.Merger
	matcher *xref.Matcher
	logger  *slog.Logger
}

// newRewriter builds a rewriter from the config. With withLicenses, the
// declaration files are loaded into an index once, here.
func (a *app) newRewriter(ctx context.Context, withLicenses bool) (*rewriter, error) {
	merger, err := a.merger()
	if err != nil {
		return nil, err
	}
	r := &rewriter{merger: merger, logger: a.component("xref")}
	if !withLicenses {
		return r, nil
	}

	strategy, err := xref.StrategyByName(a.cfg.Match.Strategy)
	if err != nil {
		return nil, err
	}
	idx, err := spdx.LoadIndex(ctx, nil, a.cfg.Update.InfoFiles...)
	if err != nil {
		return nil, err
	}
	a.logger.Info("loaded license declarations",
		"files", len(a.cfg.Update.InfoFiles),
		"records", idx.Records(),
		"checksums", idx.Len())

	r.matcher = &xref.Matcher{Index: idx, Strategy: strategy, Logger: r.logger}
	return r, nil
}

// transform returns the function handed to commit.Committer.Rewrite for
// binary.
func (r *rewriter) transform(binary string) func([]*metadata.Document) (*metadata.Document, error) {
	return func(docs []*metadata.Document) (*metadata.Document, error) {
		doc, err := r.merger.Merge(docs)
		if err != nil || r.matcher == nil {
			return doc, err
		}
		st := r.matcher.Attach(doc)
		r.logger.Info("matched license information",
			"binary", binary,
			"files", st.Files,
			"attached", st.Attached,
			"unmatched", st.Unmatched,
			"missing", st.Missing)
		return doc, nil
	}
}
