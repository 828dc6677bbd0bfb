package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newStripCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "strip <binary>...",
		Aliases: []string{"rm"},
		Short:   "Remove the metadata section from binaries",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.committer()
			policy := a.backupPolicy()
			return a.runBatch(cmd, KindStrip, args, func(ctx context.Context, binary string) error {
				res, err := c.Strip(ctx, binary, policy)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.env.Stdout, "%s: removed %s\n", res.Binary, a.cfg.Section.Name)
				return nil
			})
		},
	}
	addBackupFlags(cmd)
	return cmd
}
