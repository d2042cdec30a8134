package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/canvasflow/canvasflow/internal/catalog"
	"github.com/canvasflow/canvasflow/internal/config"
	"github.com/canvasflow/canvasflow/internal/engine"
	"github.com/canvasflow/canvasflow/internal/events"
	"github.com/canvasflow/canvasflow/internal/observability"
	"github.com/canvasflow/canvasflow/internal/workspace"
)

var (
	cfgFile string
	verbose bool

	cfg     *config.Config
	logger  *slog.Logger
	tracing *sdktrace.TracerProvider
)

var rootCmd = &cobra.Command{
	Use:   "canvasflow",
	Short: "CanvasFlow - visual document workflow engine",
	Long: `CanvasFlow builds and runs document processing workflows: uploaded
files get short labels, tools derive new files from them, and the
resulting graph is validated and executed in dependency order.

Workflows are exchanged as canvas documents (JSON) and can be kept as
named snapshots in a local database.`,
	PersistentPreRunE:  loadConfig,
	PersistentPostRunE: shutdownTracing,
	SilenceUsage:       true,
	SilenceErrors:      true,
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig is called before any command runs to load configuration.
func loadConfig(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = os.Getenv("CANVASFLOW_CONFIG")
	}
	if path == "" {
		path = config.DefaultConfigPath()
	}

	loaded, err := config.NewLoader(config.NewValidator()).LoadWithDefaults(path)
	if err != nil {
		return err
	}
	cfg = loaded

	if verbose {
		cfg.Logging.Level = "debug"
	}
	logger = config.NewLogger(cfg.Logging)
	slog.SetDefault(logger)

	// Spans go to stderr alongside the logs; --verbose turns them on even
	// when the config file leaves tracing off.
	tracing, err = observability.InitTracing(cfg.Tracing.Enabled || verbose, os.Stderr)
	if err != nil {
		return err
	}
	return nil
}

// shutdownTracing flushes pending spans after the command finishes.
func shutdownTracing(cmd *cobra.Command, args []string) error {
	return observability.ShutdownTracing(cmd.Context(), tracing)
}

// newWorkspace builds a workspace from the loaded configuration, optionally
// seeded from a canvas document file.
func newWorkspace(ctx context.Context, documentPath string) (*workspace.Workspace, error) {
	bus := events.NewBus(events.WithDefaultBufferSize(cfg.Events.BufferSize))
	ws := workspace.New(catalog.Default(),
		workspace.WithLogger(logger),
		workspace.WithBus(bus),
		workspace.WithProcessor(&engine.SimulatedProcessor{Delay: cfg.Engine.ProcessingDelay}),
		workspace.WithTracer(tracing.Tracer("canvasflow")),
	)

	if documentPath != "" {
		data, err := os.ReadFile(documentPath)
		if err != nil {
			return nil, err
		}
		if err := ws.Import(ctx, data); err != nil {
			return nil, err
		}
	}
	return ws, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.canvasflow/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(snapshotCmd)
}
