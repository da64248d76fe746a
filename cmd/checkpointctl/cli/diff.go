package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"snapstore/pkg/treebuild"
)

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff [ref]",
		Short: "Show what a checkpoint changed relative to its parent",
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
			changes, err := engine.GetCheckpointChanges(projectDir, ref)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if changes.IsMerge {
				fmt.Fprintln(out, dimColor.Sprintf("(merge commit, %d parents; showing diff against first parent)", changes.ParentCount))
			}
			for _, c := range changes.Diff.Changes {
				switch c.Kind {
				case treebuild.Added:
					fmt.Fprintf(out, "%s %s\n", addColor.Sprint("+"), c.Path)
				case treebuild.Modified:
					fmt.Fprintf(out, "%s %s\n", modColor.Sprint("~"), c.Path)
				case treebuild.Deleted:
					fmt.Fprintf(out, "%s %s\n", delColor.Sprint("-"), c.Path)
				case treebuild.Renamed:
					fmt.Fprintf(out, "%s %s -> %s\n", renameColor.Sprint("->"), c.From, c.Path)
				}
			}
			summary := fmt.Sprintf("%d added, %d modified, %d deleted, %d renamed (%+d bytes)",
				changes.Diff.AddedCount, changes.Diff.ModifiedCount, changes.Diff.DeletedCount,
				changes.Diff.RenamedCount, changes.Diff.NetSizeDelta)
			fmt.Fprintln(out, dimColor.Sprint(summary))
			return nil
		},
	}
	return cmd
}
