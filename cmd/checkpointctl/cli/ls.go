package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLsCmd() *cobra.Command {
	var ref string

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List files tracked at a checkpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := buildEngine()
			if err != nil {
				return err
			}
			files, err := engine.ListFiles(projectDir, ref)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintf(cmd.OutOrStdout(), "%10d  %s\n", f.Size, f.Path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ref, "ref", "", "checkpoint to list (default: HEAD)")
	return cmd
}
