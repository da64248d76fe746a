package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteLatestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-latest <ref>",
		Short: "Delete the most recent checkpoint, restoring its parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := buildEngine()
			if err != nil {
				return err
			}
			target, err := engine.ResolveRef(projectDir, args[0])
			if err != nil {
				return err
			}
			if err := withOptionalLock(engine, func() error {
				return engine.DeleteLatestCheckpoint(projectDir, target)
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", hashColor.Sprint(target.String()[:12]))
			return nil
		},
	}
	return cmd
}
