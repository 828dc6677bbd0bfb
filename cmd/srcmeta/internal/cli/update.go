package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

func newUpdateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update -i <license-info> <binary>...",
		Short: "Attach license information to the metadata of binaries",
		Long: `Reads SPDX tag-value license declarations and records the declared
licenses of every embedded source file whose SHA1 checksum and name match a
declared file. The metadata is merged as by 'srcmeta shrink' first.

Declaration files may be local paths or URLs. A declaration file that cannot
be read or parsed aborts the command before any binary is touched.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(a.cfg.Update.InfoFiles) == 0 {
				return errors.New("no license information given (use --info-file)")
			}
			r, err := a.newRewriter(cmd.Context(), true)
			if err != nil {
				return err
			}
			c := a.committer()
			policy := a.backupPolicy()
			return a.runBatch(cmd, KindUpdate, args, func(ctx context.Context, binary string) error {
				res, err := c.Rewrite(ctx, binary, policy, r.transform(binary))
				if err != nil {
					return err
				}
				a.report(res)
				return nil
			})
		},
	}
	addInfoFileFlags(cmd)
	addBackupFlags(cmd)
	addPrefixMapFlags(cmd)
	return cmd
}

func addInfoFileFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayP("info-file", "i", nil,
		"SPDX tag-value file or URL with license declarations (repeatable)")
	cmd.Flags().String("strategy", "basename",
		"How declared file names are matched (basename, suffix)")
}
