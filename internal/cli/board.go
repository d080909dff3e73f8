package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"clarity-board/internal/format"
	"clarity-board/internal/model"
	"clarity-board/internal/realtime"

	"github.com/spf13/cobra"
)

func newBoardCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Board commands",
	}
	cmd.AddCommand(newBoardShowCmd(app))
	cmd.AddCommand(newBoardWatchCmd(app))
	return cmd
}

// boardView is the text rendering of a board at a fixed width.
type boardView struct {
	board model.Board
	width int
}

func (v boardView) Text() string { return format.RenderBoard(v.board, v.width) }

func writeBoard(cmd *cobra.Command, app *App, b model.Board, width int) error {
	if app.Format == format.FormatText {
		return writeOut(cmd, app, boardView{board: b, width: width})
	}
	return writeOut(cmd, app, map[string]any{"data": b})
}

func newBoardShowCmd(app *App) *cobra.Command {
	var width int

	cmd := &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project's columns and tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closeEngine, err := app.engine(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeEngine()

			b, err := eng.Load(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeBoard(cmd, app, b, width)
		},
	}

	cmd.Flags().IntVar(&width, "width", format.DefaultWidth, "Text output width")
	return cmd
}

func newBoardWatchCmd(app *App) *cobra.Command {
	var (
		width int
		count int
	)

	cmd := &cobra.Command{
		Use:   "watch <project-id>",
		Short: "Print the board again whenever the server reports a change",
		Long: `Print the board, then follow the server's change feed and print it again
after every refetch. Needs --server.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID := args[0]
			if app.cfg.Server.URL == "" {
				return writeErr(cmd, errors.New("board watch needs --server"))
			}
			eng, closeEngine, err := app.engine(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeEngine()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			b, err := eng.Load(ctx, projectID)
			if err != nil {
				return writeErr(cmd, err)
			}
			// Subscribe before following the feed so no refetch is missed.
			updates, unsubscribe := eng.Subscribe(projectID)
			defer unsubscribe()
			if err := writeBoard(cmd, app, b, width); err != nil {
				return writeErr(cmd, err)
			}

			ln, err := realtime.NewListener(app.cfg.Server.URL, projectID, eng,
				realtime.WithListenerLogger(app.log),
				realtime.WithBearer(app.cfg.Actor),
			)
			if err != nil {
				return writeErr(cmd, err)
			}
			go func() { _ = ln.Run(ctx) }()

			printed := 0
			for {
				select {
				case <-ctx.Done():
					return nil
				case _, ok := <-updates:
					if !ok {
						return nil
					}
					cur, ok := eng.Board(projectID)
					if !ok {
						continue
					}
					if err := writeBoard(cmd, app, cur, width); err != nil {
						return writeErr(cmd, err)
					}
					printed++
					if count > 0 && printed >= count {
						return nil
					}
				}
			}
		},
	}

	cmd.Flags().IntVar(&width, "width", format.DefaultWidth, "Text output width")
	cmd.Flags().IntVar(&count, "count", 0, "Exit after this many updates (0: run until interrupted)")
	return cmd
}
