package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGCCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Garbage collect objects unreachable from HEAD, branches, and backups",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := buildEngine()
			if err != nil {
				return err
			}
			if err := withOptionalLock(engine, func() error {
				return engine.GarbageCollect(projectDir)
			}); err != nil {
				return err
			}
			stats, err := engine.Stats(projectDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d blobs, %d trees, %d commits remain\n",
				stats.BlobCount, stats.TreeCount, stats.CommitCount)
			return nil
		},
	}
	return cmd
}
