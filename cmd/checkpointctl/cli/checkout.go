package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"snapstore/pkg/checkpoint"
)

func newCheckoutCmd() *cobra.Command {
	var noOverwrite, noPermissions bool

	cmd := &cobra.Command{
		Use:   "checkout [ref]",
		Short: "Restore the project directory to a checkpoint",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}

			engine, err := buildEngine()
			if err != nil {
				return err
			}

			opts := checkpoint.DefaultCheckoutOptions()
			opts.Overwrite = !noOverwrite
			opts.PreservePermissions = !noPermissions

			if err := withOptionalLock(engine, func() error {
				return engine.Checkout(projectDir, ref, opts)
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "checked out %s\n", refLabel(ref))
			return nil
		},
	}

	cmd.Flags().BoolVar(&noOverwrite, "no-backup", false, "skip the automatic pre-checkout backup")
	cmd.Flags().BoolVar(&noPermissions, "no-preserve-permissions", false, "do not restore file permission bits")
	return cmd
}

func refLabel(ref string) string {
	if ref == "" {
		return "HEAD"
	}
	return ref
}
