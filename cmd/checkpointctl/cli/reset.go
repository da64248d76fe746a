package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset <ref>",
		Short: "Destructively reset history to a checkpoint, discarding later commits",
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
				return engine.ResetToCheckpoint(projectDir, target)
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset to %s\n", hashColor.Sprint(target.String()[:12]))
			return nil
		},
	}
	return cmd
}
