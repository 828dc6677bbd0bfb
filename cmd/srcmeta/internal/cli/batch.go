package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/albertocavalcante/srcmeta/pkg/commit"
	"github.com/albertocavalcante/srcmeta/pkg/config"
	"github.com/albertocavalcante/srcmeta/pkg/metadata"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
)

// addBackupFlags registers the flags shared by the commands that rewrite
// binaries. Their values are folded into the config by applyCommandFlags.
func addBackupFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolP("no-backup", "n", false, "Do not back up binaries before modifying them")
	f.StringP("backup-suffix", "b", commit.DefaultBackupSuffix, "Suffix appended to backup file names")
	f.BoolP("overwrite-backup", "O", false, "Replace existing backup files")
}

func addPrefixMapFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringArray("file-prefix-map", nil,
		"Rewrite directory prefix OLD to NEW before merging (OLD=NEW, repeatable)")
	f.Bool("report-conflicts", false,
		"Warn when a file appears with different checksums")
}

// applyCommandFlags overrides cfg with the command flags the user set.
// Flags a command does not define are never Changed.
func applyCommandFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()

	if f.Changed("no-backup") {
		noBackup, err := f.GetBool("no-backup")
		if err != nil {
			return err
		}
		enabled := !noBackup
		cfg.Backup.Enabled = &enabled
	}
	if f.Changed("backup-suffix") {
		suffix, err := f.GetString("backup-suffix")
		if err != nil {
			return err
		}
		cfg.Backup.Suffix = suffix
	}
	if f.Changed("overwrite-backup") {
		overwrite, err := f.GetBool("overwrite-backup")
		if err != nil {
			return err
		}
		cfg.Backup.Overwrite = &overwrite
	}

	// Rules and files given on the command line come first.
	if f.Changed("file-prefix-map") {
		rules, err := f.GetStringArray("file-prefix-map")
		if err != nil {
			return err
		}
		cfg.Shrink.FilePrefixMap = append(rules, cfg.Shrink.FilePrefixMap...)
	}
	if f.Changed("report-conflicts") {
		report, err := f.GetBool("report-conflicts")
		if err != nil {
			return err
		}
		cfg.Shrink.ReportConflicts = &report
	}
	if f.Changed("info-file") {
		files, err := f.GetStringArray("info-file")
		if err != nil {
			return err
		}
		cfg.Update.InfoFiles = append(files, cfg.Update.InfoFiles...)
	}
	if f.Changed("strategy") {
		strategy, err := f.GetString("strategy")
		if err != nil {
			return err
		}
		cfg.Match.Strategy = strategy
	}
	return nil
}

// backupPolicy turns the backup config into a commit.BackupPolicy.
func (a *app) backupPolicy() commit.BackupPolicy {
	return commit.BackupPolicy{
		Enabled:   a.cfg.BackupEnabled(),
		Suffix:    a.cfg.Backup.Suffix,
		Overwrite: a.cfg.OverwriteBackup(),
	}
}

func (a *app) committer() *commit.Committer {
	return &commit.Committer{
		IO:            a.io,
		Section:       a.cfg.Section.Name,
		NulSeparators: a.cfg.NulSeparators(),
		Logger:        a.component("commit"),
	}
}

// merger builds a Merger from the shrink settings.
func (a *app) merger() (*metadata.Merger, error) {
	prefixMap, err := metadata.ParsePrefixMap(a.cfg.Shrink.FilePrefixMap)
	if err != nil {
		return nil, err
	}
	return metadata.NewMerger(metadata.MergeOptions{
		PrefixMap:       prefixMap,
		ReportConflicts: a.cfg.ReportConflicts(),
		Logger:          a.component("merge"),
	}), nil
}

// runBatch expands args and applies fn to every binary. Per-binary errors
// are printed and, for commands that rewrite binaries, turned into a
// failing exit unless --ignore-errors is set. show reports errors in its
// own output.
func (a *app) runBatch(cmd *cobra.Command, kind Kind, args []string, fn func(ctx context.Context, binary string) error) error {
	binaries, err := expandBinaries(args)
	if err != nil {
		return err
	}

	b := &commit.Batch{
		BackupSuffix: a.cfg.Backup.Suffix,
		Logger:       a.component(kind.String()),
	}
	summary := b.Run(cmd.Context(), binaries, fn)
	for _, o := range summary.Outcomes {
		if o.Err != nil && kind != KindShow {
			fmt.Fprintf(a.env.Stderr, "srcmeta %s: %v\n", kind, o.Err)
		}
	}

	if !kind.Mutates() || a.opts.IgnoreErrors {
		return nil
	}
	return summary.Err()
}

// expandBinaries expands glob patterns in args. Plain paths and patterns
// matching nothing are kept as given, so that they are reported as missing
// by the command. Matches of one pattern are sorted; the result has no
// duplicates and otherwise keeps argument order.
func expandBinaries(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[{") {
			add(arg)
			continue
		}
		if !doublestar.ValidatePattern(filepath.ToSlash(arg)) {
			return nil, fmt.Errorf("invalid pattern %q", arg)
		}
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", arg, err)
		}
		if len(matches) == 0 {
			add(arg)
			continue
		}
		sort.Strings(matches)
		for _, m := range matches {
			add(m)
		}
	}
	return out, nil
}
