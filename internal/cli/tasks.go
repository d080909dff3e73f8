package cli

import (
	"errors"
	"strings"

	"clarity-board/internal/intent"
	"clarity-board/internal/pipeline"

	"github.com/spf13/cobra"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "Task commands",
	}
	cmd.AddCommand(newTasksCreateCmd(app))
	cmd.AddCommand(newTasksMoveCmd(app))
	cmd.AddCommand(newTasksEditCmd(app))
	cmd.AddCommand(newTasksDeleteCmd(app))
	return cmd
}

func newTasksCreateCmd(app *App) *cobra.Command {
	var (
		projectID   string
		columnID    string
		title       string
		description string
		assignee    string
		pos         int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task in a column",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := intent.Fields{
				Title:       &title,
				Description: changedString(cmd, "description", description),
				AssigneeID:  changedString(cmd, "assignee", assignee),
			}
			return runMutation(cmd, app, projectID, func(eng *pipeline.Engine) (pipeline.Result, error) {
				return eng.CreateTask(cmd.Context(), projectID, columnID, optionalPosition(pos), f)
			})
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project id")
	cmd.Flags().StringVar(&columnID, "column", "", "Column id")
	cmd.Flags().StringVar(&title, "title", "", "Task title")
	cmd.Flags().StringVar(&description, "description", "", "Task description")
	cmd.Flags().StringVar(&assignee, "assignee", "", "Assignee actor id")
	cmd.Flags().IntVar(&pos, "position", 0, "1-based position in the column (0: append)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("column")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newTasksMoveCmd(app *App) *cobra.Command {
	var (
		projectID string
		columnID  string
		pos       int
	)

	cmd := &cobra.Command{
		Use:   "move <task-id>",
		Short: "Move a task within its column or to another column",
		Long: `Move a task to --position in --column (default: its current column).
Positions are 1-based; anything past the end lands last.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID := strings.TrimSpace(args[0])
			return runMutation(cmd, app, projectID, func(eng *pipeline.Engine) (pipeline.Result, error) {
				target := columnID
				if target == "" {
					b, ok := eng.Board(projectID)
					ci, _ := b.FindTask(taskID)
					if !ok || ci < 0 {
						return pipeline.Result{}, errors.New("task not on the board; pass --column")
					}
					target = b.Columns[ci].ID
				}
				return eng.MoveTask(cmd.Context(), projectID, taskID, target, pos)
			})
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project id")
	cmd.Flags().StringVar(&columnID, "column", "", "Target column id (default: current column)")
	cmd.Flags().IntVar(&pos, "position", 0, "1-based target position")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("position")
	return cmd
}

func newTasksEditCmd(app *App) *cobra.Command {
	var (
		projectID   string
		title       string
		description string
		assignee    string
		unassign    bool
	)

	cmd := &cobra.Command{
		Use:   "edit <task-id>",
		Short: "Edit a task's title, description or assignee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := intent.Fields{
				Title:       changedString(cmd, "title", title),
				Description: changedString(cmd, "description", description),
				AssigneeID:  changedString(cmd, "assignee", assignee),
			}
			if unassign {
				if f.AssigneeID != nil {
					return writeErr(cmd, errors.New("--assignee and --unassign are mutually exclusive"))
				}
				empty := ""
				f.AssigneeID = &empty
			}
			if f.Title == nil && f.Description == nil && f.AssigneeID == nil {
				return writeErr(cmd, errors.New("nothing to change; pass --title, --description, --assignee or --unassign"))
			}
			return runMutation(cmd, app, projectID, func(eng *pipeline.Engine) (pipeline.Result, error) {
				return eng.UpdateTask(cmd.Context(), projectID, args[0], f)
			})
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project id")
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&assignee, "assignee", "", "New assignee actor id")
	cmd.Flags().BoolVar(&unassign, "unassign", false, "Clear the assignee")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newTasksDeleteCmd(app *App) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cmd, app, projectID, func(eng *pipeline.Engine) (pipeline.Result, error) {
				return eng.DeleteTask(cmd.Context(), projectID, args[0])
			})
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}
