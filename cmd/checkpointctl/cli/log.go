package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogCmd() *cobra.Command {
	var branch string

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show checkpoint history, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := buildEngine()
			if err != nil {
				return err
			}
			history, err := engine.GetHistory(projectDir, branch)
			if err != nil {
				return err
			}
			if len(history) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), dimColor.Sprint("(no checkpoints yet)"))
				return nil
			}
			for _, c := range history {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n",
					hashColor.Sprint(c.Hash.String()[:12]), c.Commit.Timestamp, c.Commit.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "branch to show history for (default: current HEAD)")
	return cmd
}
