package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"clarity-board/internal/config"
	"clarity-board/internal/format"
	"clarity-board/internal/logging"
	"clarity-board/internal/pipeline"
	"clarity-board/internal/remote"
	"clarity-board/internal/store"
	"clarity-board/internal/telemetry"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type App struct {
	ConfigFile string
	Dir        string
	ServerURL  string
	ActorID    string
	PrettyJSON bool
	Format     string
	LogLevel   string
	Trace      bool

	cfg config.Config
	v   *viper.Viper
	log *logging.Logger

	shutdownTelemetry func(context.Context) error
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:           "clarity-board",
		Short:         "Project board with optimistic local updates",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Serve a board store over HTTP
  clarity-board serve --addr 127.0.0.1:8787

  # Work against a running server
  clarity-board --server http://127.0.0.1:8787 --actor act-alice board show proj-abc

  # Move a task to the top of another column
  clarity-board tasks move task-abc --project proj-abc --column col-def --position 1
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.loadConfig(cmd)
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return app.stopTelemetry(cmd.Context())
	}

	cmd.PersistentFlags().StringVar(&app.ConfigFile, "config", envOr("CLARITY_BOARD_CONFIG", ""), "Config file (default: "+config.DefaultPath()+")")
	cmd.PersistentFlags().StringVar(&app.ServerURL, "server", "", "Board server URL (empty: use the local store in-process)")
	cmd.PersistentFlags().StringVar(&app.Dir, "dir", "", "Local store directory (default: "+config.DefaultStoreDir()+")")
	cmd.PersistentFlags().StringVar(&app.ActorID, "actor", "", "Actor id sent as the bearer identity for writes")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON/EDN output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", "", "Output format (json|edn|text)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&app.Trace, "trace", false, "Print mutation spans to stderr")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newProjectsCmd(app))
	cmd.AddCommand(newBoardCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newColumnsCmd(app))
	cmd.AddCommand(newStatsCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

// flagKeys maps persistent flags onto config keys. Flags win over the
// environment and the config file only when set.
var flagKeys = map[string]string{
	"server":    "server.url",
	"dir":       "store.dir",
	"actor":     "actor",
	"pretty":    "output.pretty",
	"format":    "output.format",
	"log-level": "log.level",
	"trace":     "telemetry.trace",
}

func (app *App) loadConfig(cmd *cobra.Command) error {
	v, err := config.NewViper(app.ConfigFile)
	if err != nil {
		return writeErr(cmd, err)
	}
	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return writeErr(cmd, err)
			}
		}
	}
	if f := cmd.Flags().Lookup("addr"); f != nil {
		_ = v.BindPFlag("server.addr", f)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return writeErr(cmd, err)
	}
	app.v = v
	app.cfg = cfg
	app.Format = cfg.Output.Format
	app.PrettyJSON = cfg.Output.Pretty
	app.log = logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	return nil
}

// startTelemetry installs metrics export (when metrics is prometheus) and span
// output (when --trace is on).
func (app *App) startTelemetry(cmd *cobra.Command, metrics string) error {
	tc := telemetry.Config{ServiceName: "clarity-board", Metrics: metrics}
	if app.cfg.Telemetry.Trace {
		tc.TraceWriter = cmd.ErrOrStderr()
	}
	if tc.Metrics == telemetry.MetricsNone && tc.TraceWriter == nil {
		return nil
	}
	shutdown, err := telemetry.Setup(cmd.Context(), tc)
	if err != nil {
		return err
	}
	app.shutdownTelemetry = shutdown
	return nil
}

func (app *App) stopTelemetry(ctx context.Context) error {
	if app.shutdownTelemetry == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := app.shutdownTelemetry(ctx)
	app.shutdownTelemetry = nil
	return err
}

// client returns the HTTP client when a server is configured, otherwise an
// in-process adapter over the local store. The returned func releases it.
func (app *App) client(ctx context.Context) (remote.Client, func(), error) {
	if url := app.cfg.Server.URL; url != "" {
		c := remote.NewHTTPClient(url,
			remote.WithActor(app.cfg.Actor),
			remote.WithTimeout(app.cfg.Remote.Timeout),
			remote.WithHTTPLogger(app.log),
		)
		return c, func() {}, nil
	}
	st, err := store.Open(ctx, app.cfg.Store.Dir)
	if err != nil {
		return nil, nil, err
	}
	l := remote.NewLocal(st, remote.WithDefaultActor(app.cfg.Actor), remote.WithLocalLogger(app.log))
	return l, func() { _ = st.Close() }, nil
}

// engine builds a board engine over app.client. Spans are exported when
// --trace is set.
func (app *App) engine(cmd *cobra.Command) (*pipeline.Engine, func(), error) {
	if err := app.startTelemetry(cmd, telemetry.MetricsNone); err != nil {
		return nil, nil, err
	}
	c, release, err := app.client(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	eng := pipeline.New(c, pipeline.WithLogger(app.log))
	return eng, func() {
		eng.Close()
		release()
	}, nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

// writeData prints v wrapped as {"data": v}, or bare for text output.
func writeData(cmd *cobra.Command, app *App, v any) error {
	if app.Format == format.FormatText {
		return writeOut(cmd, app, v)
	}
	return writeOut(cmd, app, map[string]any{"data": v})
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}

// remoteErr turns a failed remote call into an error carrying the server's
// message.
func remoteErr[T any](res remote.Result[T]) error {
	if res.OK {
		return nil
	}
	if res.Transport() {
		return fmt.Errorf("%s: %w", pipeline.TransportMessage, res.AsError())
	}
	return res.AsError()
}

var errRolledBack = errors.New("mutation rolled back")
