package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/simpleprotocols/simpled/internal/logger"
	"github.com/simpleprotocols/simpled/pkg/config"
	"github.com/simpleprotocols/simpled/pkg/metrics/prometheus"
	"github.com/simpleprotocols/simpled/pkg/server"
	"github.com/simpleprotocols/simpled/pkg/service"
	"github.com/simpleprotocols/simpled/pkg/staticdata"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the simpled server",
	Long: `Start the simpled server with the specified configuration.

All enabled protocols are bound before any traffic is served; a port that
cannot be bound aborts startup. The server runs in the foreground until
interrupted (SIGINT/SIGTERM), then drains connections within the configured
shutdown timeout.

Examples:
  # Start with default config location
  simpled start

  # Start with custom config
  simpled start --config /etc/simpled/config.yaml

  # Run unprivileged by shifting all well-known ports
  SIMPLED_BASE_PORT=10000 simpled start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	logger.Info("simpled starting", "version", Version)
	logger.Info("log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)

	// The store must load before any listener binds; malformed embedded
	// data is a startup failure, never a request-time one.
	store, err := staticdata.Load()
	if err != nil {
		return fmt.Errorf("failed to load static data: %w", err)
	}

	metrics := prometheus.New(promclient.DefaultRegisterer)

	descriptors := service.Build(cfg, store, nil)

	host := server.NewHost(server.Options{
		BindAddress:     cfg.BindAddress,
		MaxInputBytes:   cfg.MaxInputBytes,
		IdleTimeout:     cfg.IdleTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, descriptors, metrics)

	if err := host.Bind(); err != nil {
		return fmt.Errorf("failed to bind listeners: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := host.Serve(ctx); err != nil {
		return fmt.Errorf("server shutdown was not clean: %w", err)
	}

	logger.Info("simpled stopped")
	return nil
}
