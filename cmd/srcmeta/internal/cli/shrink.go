package cli

import (
	"context"
	"fmt"

	"github.com/albertocavalcante/srcmeta/pkg/commit"
	"github.com/spf13/cobra"
)

func newShrinkCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shrink <binary>...",
		Short: "Merge the compilation-unit documents of binaries into one",
		Long: `Replaces the per-compilation-unit documents in each binary with a single
document listing every source file once, sorted by directory and name.

Each binary is backed up first unless --no-backup is given. Shrinking an
already shrunk binary leaves its metadata unchanged.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.newRewriter(cmd.Context(), false)
			if err != nil {
				return err
			}
			c := a.committer()
			policy := a.backupPolicy()
			return a.runBatch(cmd, KindShrink, args, func(ctx context.Context, binary string) error {
				res, err := c.Rewrite(ctx, binary, policy, r.transform(binary))
				if err != nil {
					return err
				}
				a.report(res)
				return nil
			})
		},
	}
	addBackupFlags(cmd)
	addPrefixMapFlags(cmd)
	return cmd
}

// report prints one line per rewritten binary.
func (a *app) report(res *commit.Result) {
	state := "updated"
	if res.Unchanged {
		state = "unchanged"
	}
	fmt.Fprintf(a.env.Stdout, "%s: %s (%d bytes, xxh64 %s)\n", res.Binary, state, res.Bytes, res.Digest)
}
