package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var optimize bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show object store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := buildEngine()
			if err != nil {
				return err
			}
			if optimize {
				if err := engine.OptimizeStorage(projectDir); err != nil {
					return err
				}
			}
			stats, err := engine.Stats(projectDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "blobs:            %d\n", stats.BlobCount)
			fmt.Fprintf(out, "trees:            %d\n", stats.TreeCount)
			fmt.Fprintf(out, "commits:          %d\n", stats.CommitCount)
			fmt.Fprintf(out, "compressed bytes: %d\n", stats.CompressedBytes)
			fmt.Fprintf(out, "dedup ratio:      %.2f\n", stats.DedupRatio())
			return nil
		},
	}

	cmd.Flags().BoolVar(&optimize, "optimize", false, "run garbage collection before reporting")
	return cmd
}
