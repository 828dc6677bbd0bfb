package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/albertocavalcante/srcmeta/cmd/srcmeta/internal/watch"
	"github.com/albertocavalcante/srcmeta/pkg/section"
	"github.com/spf13/cobra"
)

type watchFlags struct {
	include  []string
	debounce int
}

func newWatchCmd(a *app) *cobra.Command {
	var flags watchFlags
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Shrink binaries as they are written",
		Long: `Watches a build output directory and shrinks every binary that is
created or rewritten, once the writes have settled. With license
information (--info-file or update.info_files), the binaries are updated
instead, as by 'srcmeta update'.

Files without the metadata section are ignored. Once a binary has a backup,
relinking it needs --overwrite-backup or --no-backup. Press Ctrl+C to stop
watching.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWatch(cmd, args, flags)
		},
	}
	cmd.Flags().StringArrayVar(&flags.include, "include", nil,
		"Only handle files matching this pattern, relative to dir (repeatable)")
	cmd.Flags().IntVar(&flags.debounce, "debounce", 500,
		"Debounce window in milliseconds")
	addInfoFileFlags(cmd)
	addBackupFlags(cmd)
	addPrefixMapFlags(cmd)
	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, args []string, flags watchFlags) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("invalid path %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path must be a directory: %s", dir)
	}

	r, err := a.newRewriter(cmd.Context(), len(a.cfg.Update.InfoFiles) > 0)
	if err != nil {
		return err
	}
	c := a.committer()
	policy := a.backupPolicy()
	logger := a.component(KindWatch.String())

	handle := func(ctx context.Context, binaries []string) {
		for _, binary := range binaries {
			res, err := c.Rewrite(ctx, binary, policy, r.transform(binary))
			switch {
			case errors.Is(err, section.ErrSectionNotFound):
				logger.Debug("no metadata", "binary", binary)
			case err != nil:
				logger.Error("failed", "binary", binary, "error", err)
				fmt.Fprintf(a.env.Stderr, "srcmeta watch: %v\n", err)
			default:
				a.report(res)
			}
		}
	}

	w, err := watch.New(watch.Config{
		Root:         dir,
		Include:      flags.include,
		BackupSuffix: a.cfg.Backup.Suffix,
		Debounce:     time.Duration(flags.debounce) * time.Millisecond,
		Logger:       logger,
	}, handle)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()
	return w.Run(ctx)
}
