package commit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/albertocavalcante/srcmeta/internal/log"
)

// Outcome is what happened to one binary of a batch.
type Outcome struct {
	Binary  string
	Skipped bool
	Err     error
}

// Summary aggregates a batch run.
type Summary struct {
	Outcomes  []Outcome
	Processed int
	Skipped   int
	Failed    int
}

// Err joins the per-binary errors, or returns nil when none failed.
func (s *Summary) Err() error {
	if s.Failed == 0 {
		return nil
	}
	var errs []error
	for _, o := range s.Outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return fmt.Errorf("%d of %d binaries failed: %w", s.Failed, s.Processed, errors.Join(errs...))
}

// Batch applies a per-binary operation to a list of binaries in order. A
// failing binary is counted and the batch moves on.
type Batch struct {
	// BackupSuffix names backups; binaries carrying it are skipped.
	BackupSuffix string
	Logger       *slog.Logger
}

// Run calls fn for every binary not skipped. Binaries left when ctx is
// canceled are counted as failed with the context error.
func (b *Batch) Run(ctx context.Context, binaries []string, fn func(ctx context.Context, binary string) error) *Summary {
	logger := log.OrDiscard(b.Logger)
	s := &Summary{}

	for _, bin := range binaries {
		if b.BackupSuffix != "" && strings.HasSuffix(bin, b.BackupSuffix) {
			logger.Info("skip backup file", "binary", bin)
			s.Skipped++
			s.Outcomes = append(s.Outcomes, Outcome{Binary: bin, Skipped: true})
			continue
		}

		s.Processed++
		err := ctx.Err()
		if err == nil {
			logger.Info("processing", "binary", bin)
			err = fn(ctx, bin)
		}
		if err != nil {
			s.Failed++
			logger.Error("failed", "binary", bin, "error", err)
		}
		s.Outcomes = append(s.Outcomes, Outcome{Binary: bin, Err: err})
	}

	logger.Info("done", "processed", s.Processed, "skipped", s.Skipped, "errors", s.Failed)
	return s
}
