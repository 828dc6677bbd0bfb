package cli

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/albertocavalcante/srcmeta/pkg/metadata"
	"github.com/spf13/cobra"
)

type showFlags struct {
	raw       bool
	noComment bool
	units     bool
}

func newShowCmd(a *app) *cobra.Command {
	var flags showFlags
	cmd := &cobra.Command{
		Use:   "show <binary>...",
		Short: "Print the metadata embedded in binaries",
		Long: `Prints the metadata of each binary as one merged YAML document.

--units prints the compilation-unit documents as they are stored, and --raw
prints the section contents without parsing them. Errors for a binary are
reported and the remaining binaries are still shown.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd, KindShow, args, func(ctx context.Context, binary string) error {
				return a.show(ctx, binary, flags)
			})
		},
	}
	cmd.Flags().BoolVarP(&flags.raw, "raw", "r", false,
		"Print the section contents without parsing")
	cmd.Flags().BoolVarP(&flags.noComment, "no-comment", "n", false,
		"Do not print the binary name comment before each document")
	cmd.Flags().BoolVar(&flags.units, "units", false,
		"Print each compilation unit instead of the merged document")
	return cmd
}

// show prints one binary. A failure is written into the output stream as a
// comment under the binary's name, so the listing stays complete.
func (a *app) show(ctx context.Context, binary string, flags showFlags) error {
	w := a.env.Stdout
	if !flags.noComment {
		fmt.Fprintf(w, "# BinaryFileName: %s\n", filepath.Base(binary))
	}

	out, err := a.render(ctx, binary, flags)
	if err != nil {
		fmt.Fprintf(w, "# Error: %v\n\n", err)
		return err
	}

	if !flags.noComment {
		abs, err := filepath.Abs(binary)
		if err != nil {
			abs = binary
		}
		fmt.Fprintf(w, "# BinaryPath: %s\n", abs)
	}
	_, err = w.Write(out)
	if err == nil && len(out) > 0 && out[len(out)-1] != '\n' {
		_, err = fmt.Fprintln(w)
	}
	return err
}

func (a *app) render(ctx context.Context, binary string, flags showFlags) ([]byte, error) {
	raw, err := a.io.ReadSection(ctx, binary, a.cfg.Section.Name)
	if err != nil {
		return nil, err
	}
	if flags.raw {
		return bytes.ReplaceAll(raw, []byte{0}, []byte{'\n'}), nil
	}

	docs, err := metadata.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", binary, err)
	}
	if flags.units {
		return metadata.EncodeAll(docs)
	}

	merger, err := a.merger()
	if err != nil {
		return nil, err
	}
	doc, err := merger.Merge(docs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", binary, err)
	}
	return metadata.Encode(doc)
}
