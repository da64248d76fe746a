package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"snapstore/pkg/types"
)

func newCreateCmd() *cobra.Command {
	var message, author string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a checkpoint of the project directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := buildEngine()
			if err != nil {
				return err
			}
			var h types.Hash
			err = withOptionalLock(engine, func() error {
				h, err = engine.CreateCheckpoint(projectDir, message, author)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", hashColor.Sprint(h.String()[:12]), message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "checkpoint", "checkpoint description")
	cmd.Flags().StringVar(&author, "author", "", "checkpoint author (defaults to config)")
	return cmd
}
