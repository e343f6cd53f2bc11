// Package commands holds the mallmap cobra subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mallmap/core/internal/adapters/events"
	"github.com/mallmap/core/internal/infrastructure/config"
	"github.com/mallmap/core/internal/infrastructure/logger"
	"github.com/mallmap/core/internal/infrastructure/server"
	"github.com/mallmap/core/internal/infrastructure/storage"
	"github.com/mallmap/core/internal/ports"
)

// Build metadata, set with -ldflags at release time.
var (
	Version   = "1.0.0"
	BuildDate = "unknown"
	GitCommit = "development"
)

// Options carries the root command's persistent flags.
type Options struct {
	ConfigFile string
}

// NewServeCommand creates the serve command
func NewServeCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MallMap API server",
		Long:  "Load the mall document from the configured backend and serve the REST API until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), opts)
		},
	}
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print MallMap version",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "MallMap Core v%s\n", Version)
			fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
			fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
		},
	}
}

func runServer(ctx context.Context, opts *Options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		appLogger.Errorw("Failed to open document backend", "driver", cfg.Storage.Driver, "error", err)
		return err
	}
	defer backend.Close()

	publisher := newPublisher(cfg, appLogger)
	defer publisher.Close()

	srv, err := server.New(ctx, cfg, backend, publisher, appLogger)
	if err != nil {
		appLogger.Errorw("Failed to initialize server", "error", err)
		return err
	}

	appLogger.Infow("Starting MallMap API server",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
		"storage", cfg.Storage.Driver,
		"events", cfg.Events.Enabled,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			appLogger.Errorw("Server failed", "error", err)
		}
		return err
	case <-ctx.Done():
	}

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Errorw("Graceful shutdown failed", "error", err)
		return err
	}
	appLogger.Infow("Server stopped")
	return nil
}

// newPublisher returns the Kafka status publisher when events are enabled.
func newPublisher(cfg *config.Config, log *logger.Logger) ports.EventPublisher {
	if !cfg.Events.Enabled {
		return events.Noop{}
	}
	log.Infow("Publishing status events", "brokers", cfg.Events.Brokers, "topic", cfg.Events.Topic)
	return events.NewKafkaPublisher(cfg.Events.BrokerList(), cfg.Events.Topic, cfg.Events.WriteTimeout)
}
