package cli

import (
	"os"
	"os/signal"
	"syscall"

	"clarity-board/internal/server"
	"clarity-board/internal/store"

	"github.com/spf13/cobra"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local board store over HTTP",
		Long: `Serve the board store as JSON over HTTP.

Writes require "Authorization: Bearer <actor-id>". Each project also has a
websocket change feed at /projects/{projectId}/ws, and Prometheus metrics are
exposed at /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.startTelemetry(cmd, app.cfg.Telemetry.Metrics); err != nil {
				return writeErr(cmd, err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := store.Open(ctx, app.cfg.Store.Dir)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			srv, err := server.New(app.cfg.Server.Addr, st, server.WithLogger(app.log))
			if err != nil {
				return writeErr(cmd, err)
			}
			app.log.Info("serving board store", "dir", st.Dir, "addr", srv.Addr())
			if err := srv.ListenAndServe(ctx); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from server.addr)")
	return cmd
}
