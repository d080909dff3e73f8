package cli

import (
	"clarity-board/internal/pipeline"

	"github.com/spf13/cobra"
)

func newColumnsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "columns",
		Aliases: []string{"column"},
		Short:   "Column commands",
	}
	cmd.AddCommand(newColumnsCreateCmd(app))
	cmd.AddCommand(newColumnsMoveCmd(app))
	cmd.AddCommand(newColumnsRenameCmd(app))
	cmd.AddCommand(newColumnsDeleteCmd(app))
	return cmd
}

func newColumnsCreateCmd(app *App) *cobra.Command {
	var (
		projectID string
		name      string
		pos       int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a column",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cmd, app, projectID, func(eng *pipeline.Engine) (pipeline.Result, error) {
				return eng.CreateColumn(cmd.Context(), projectID, name, optionalPosition(pos))
			})
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project id")
	cmd.Flags().StringVar(&name, "name", "", "Column name")
	cmd.Flags().IntVar(&pos, "position", 0, "1-based position (0: append)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newColumnsMoveCmd(app *App) *cobra.Command {
	var (
		projectID string
		pos       int
	)

	cmd := &cobra.Command{
		Use:   "move <column-id>",
		Short: "Move a column to a new position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cmd, app, projectID, func(eng *pipeline.Engine) (pipeline.Result, error) {
				return eng.MoveColumn(cmd.Context(), projectID, args[0], pos)
			})
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project id")
	cmd.Flags().IntVar(&pos, "position", 0, "1-based target position")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("position")
	return cmd
}

func newColumnsRenameCmd(app *App) *cobra.Command {
	var (
		projectID string
		name      string
	)

	cmd := &cobra.Command{
		Use:   "rename <column-id>",
		Short: "Rename a column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cmd, app, projectID, func(eng *pipeline.Engine) (pipeline.Result, error) {
				return eng.RenameColumn(cmd.Context(), projectID, args[0], name)
			})
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project id")
	cmd.Flags().StringVar(&name, "name", "", "New name")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newColumnsDeleteCmd(app *App) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "delete <column-id>",
		Short: "Delete a column and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cmd, app, projectID, func(eng *pipeline.Engine) (pipeline.Result, error) {
				return eng.DeleteColumn(cmd.Context(), projectID, args[0])
			})
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}
