package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBranchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branch",
		Short: "List checkpoint branches (branching mode only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := buildEngine()
			if err != nil {
				return err
			}
			branches, err := engine.ListBranches(projectDir)
			if err != nil {
				return err
			}
			for _, b := range branches {
				fmt.Fprintln(cmd.OutOrStdout(), b)
			}
			return nil
		},
	}

	cmd.AddCommand(newBranchDeleteCmd())
	return cmd
}

func newBranchDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a checkpoint branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := buildEngine()
			if err != nil {
				return err
			}
			return withOptionalLock(engine, func() error {
				return engine.DeleteBranch(projectDir, args[0])
			})
		},
	}
}
