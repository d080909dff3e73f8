package cli

import (
	"errors"
	"strings"

	"clarity-board/internal/model"

	"github.com/spf13/cobra"
)

func newProjectsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Project commands",
	}
	cmd.AddCommand(newProjectsCreateCmd(app))
	cmd.AddCommand(newProjectsListCmd(app))
	cmd.AddCommand(newProjectsShowCmd(app))
	return cmd
}

func newProjectsCreateCmd(app *App) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project with the default columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			name = strings.TrimSpace(name)
			if name == "" {
				return writeErr(cmd, errors.New("--name is required"))
			}
			c, release, err := app.client(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer release()

			res := c.CreateProject(cmd.Context(), model.NewProject{Name: name})
			if err := remoteErr(res); err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, res.Data)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Project name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newProjectsListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, release, err := app.client(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer release()

			res := c.ListProjects(cmd.Context())
			if err := remoteErr(res); err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, res.Data)
		},
	}
	return cmd
}

func newProjectsShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project with its column and task counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closeEngine, err := app.engine(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeEngine()

			p, err := eng.LoadProject(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, p)
		},
	}
	return cmd
}
