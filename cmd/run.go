package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sharevia/snapshotd/internal/api"
	"github.com/sharevia/snapshotd/internal/config"
	"github.com/sharevia/snapshotd/internal/logging"
	"github.com/sharevia/snapshotd/internal/metrics"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Starts the polling service",
		Long: `Runs the reconciliation loop until interrupted, alongside the ops HTTP
server exposing health, metrics, and the last cycle report. A SIGINT or
SIGTERM lets the in-flight cycle finish before shutdown.`,
		RunE: runService,
	}
}

func runService(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	metrics.Init()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, cleanup, err := buildPoller(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewServer(p, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("ops server listening", zap.Int("port", cfg.Server.Port))
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("ops server failed", zap.Error(serveErr))
		}
	}()

	p.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("ops server shutdown", zap.Error(err))
	}
	return nil
}

func syncLogger(logger *zap.Logger) {
	// Sync on stderr returns EINVAL on Linux; nothing actionable either way.
	_ = logger.Sync()
}
