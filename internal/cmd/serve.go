package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/perchhub/perch/internal/config"
	"github.com/perchhub/perch/internal/docker"
	"github.com/perchhub/perch/internal/monitor"
	"github.com/perchhub/perch/internal/observability"
	"github.com/perchhub/perch/internal/server"
	"github.com/perchhub/perch/internal/server/handlers"
	"github.com/perchhub/perch/internal/token"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the monitoring agent",
	Long: `Start the agent's HTTP server with graceful shutdown support.

On first run the seed file is generated and the initial access token is
revealed once (copied to the clipboard where available). Subsequent runs
refuse to start if the seed file is missing or damaged.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		ExitWithCodeStderr(foundry.ExitConfigInvalid, "Invalid configuration", err)
	}

	observability.InitServerLogger("perch", cfg.Logging.Level)
	logger := observability.ServerLogger

	metrics := observability.NewMetrics()
	if cfg.Metrics.Enabled {
		if err := metrics.Serve(cfg.Metrics.Port); err != nil {
			ExitWithCode(logger, foundry.ExitFailure, "Failed to start metrics listener", err)
		}
	}

	store := token.NewSeedStore(cfg.Security.SeedPath)
	if created, err := store.EnsureInitialized(); err != nil {
		ExitWithCode(logger, foundry.ExitFailure, "Seed file initialization failed", err)
	} else if created {
		logger.Info("seed file generated", zap.String("path", store.Path()))
	}
	if err := store.Load(); err != nil {
		ExitWithCode(logger, foundry.ExitFailure, "Seed file unusable, refusing to start", err)
	}
	codec := token.NewCodec(store)

	// baseCtx outlives individual requests; canceling it stops the
	// collector refresh loops and the rate-limit sweep at shutdown.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	mon := monitor.New(baseCtx, cfg.Monitor, logger)
	dockerClient := docker.NewClient(cfg.Docker.Socket)

	srv := server.New(*cfg, logger, metrics, codec, mon, dockerClient, handlers.AgentInfo{
		Name:       "perch",
		Version:    versionInfo.Version,
		Stage:      cfg.Security.Stage,
		Repository: "https://github.com/perchhub/perch",
	})

	logBanner(logger, cfg)

	// Shutdown handlers run LIFO: the HTTP server drains first, then
	// background loops stop, then the logger flushes.
	signals.OnShutdown(func(ctx context.Context) error {
		_ = logger.Sync()
		return nil
	})
	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("stopping background loops")
		cancelBase()
		return metrics.Shutdown(ctx)
	})
	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("shutting down http server")
		return srv.Shutdown(ctx)
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("failed to enable double-tap force quit", zap.Error(err))
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(baseCtx)
	}()
	go func() {
		if err := signals.Listen(cmd.Context()); err != nil {
			logger.Error("signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	if err := <-errChan; err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// logBanner logs a startup summary of the host the agent watches.
func logBanner(logger *zap.Logger, cfg *config.Config) {
	fields := []zap.Field{
		zap.String("version", versionInfo.Version),
		zap.String("commit", versionInfo.Commit),
		zap.String("stage", cfg.Security.Stage),
		zap.String("listen", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)),
	}

	if info, err := host.Info(); err == nil {
		fields = append(fields,
			zap.String("hostname", info.Hostname),
			zap.String("os", fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)),
			zap.String("kernel", info.KernelVersion))
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		fields = append(fields, zap.Uint64("memory_total", vm.Total))
	}
	if cfg.Metrics.Enabled {
		fields = append(fields, zap.Int("metrics_port", cfg.Metrics.Port))
	}

	logger.Info("perch agent starting", fields...)
}
