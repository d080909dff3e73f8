package cli

import (
	"github.com/spf13/cobra"
)

func newStatsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Board statistics",
	}
	cmd.AddCommand(newStatsAssigneesCmd(app))
	return cmd
}

func newStatsAssigneesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assignees <project-id>",
		Short: "Count tasks per assignee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closeEngine, err := app.engine(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeEngine()

			counts, err := eng.LoadAssigneeCounts(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, counts)
		},
	}
	return cmd
}
