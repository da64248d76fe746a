package cli

import (
	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	var ref string

	cmd := &cobra.Command{
		Use:   "show <path>",
		Short: "Print a file's content as of a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := buildEngine()
			if err != nil {
				return err
			}
			content, err := engine.GetFileContent(projectDir, ref, args[0])
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(content)
			return err
		},
	}

	cmd.Flags().StringVar(&ref, "ref", "", "checkpoint to read from (default: HEAD)")
	return cmd
}
