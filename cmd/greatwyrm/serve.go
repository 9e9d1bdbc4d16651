// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Greatwyrm Contributors

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/greatwyrm/greatwyrm/internal/auth"
	"github.com/greatwyrm/greatwyrm/internal/auth/sqlite"
	"github.com/greatwyrm/greatwyrm/internal/config"
	"github.com/greatwyrm/greatwyrm/internal/logging"
	"github.com/greatwyrm/greatwyrm/internal/observability"
	"github.com/greatwyrm/greatwyrm/internal/web"
	"github.com/greatwyrm/greatwyrm/pkg/errutil"
)

// Default values for serve command flags.
const (
	defaultListenAddr    = ":8080"
	defaultMetricsAddr   = "127.0.0.1:9100"
	defaultDataPath      = "/data/data.db"
	defaultRootCredsPath = "/data/root-creds.yaml"
	defaultLogFormat     = "json"
	defaultLogLevel      = "info"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the game server",
		Long: `Start the game server: open the user store, bootstrap the root
account if the store is fresh, and serve the web API.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("listen-addr", defaultListenAddr, "HTTP listen address")
	cmd.Flags().String("metrics-addr", defaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("data-path", defaultDataPath, "SQLite database file")
	cmd.Flags().String("root-creds-path", defaultRootCredsPath, "root bootstrap credentials file")
	cmd.Flags().String("cookie-key", "", "hex-encoded 32-byte cookie sealing key")
	cmd.Flags().String("log-format", defaultLogFormat, "log format (json or text)")
	cmd.Flags().String("log-level", defaultLogLevel, "log level (debug, info, warn, error)")

	return cmd
}

// runServe starts the server and blocks until shutdown.
func runServe(ctx context.Context, cfg *config.Config) error {
	if err := logging.SetDefault(logging.Options{
		Service: "greatwyrm",
		Version: version,
		Format:  cfg.LogFormat,
		Level:   cfg.LogLevel,
	}); err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	logger := slog.Default()

	slog.Info("starting greatwyrm",
		"listen_addr", cfg.ListenAddr,
		"data_path", cfg.DataPath,
	)

	users, err := sqlite.Open(ctx, cfg.DataPath)
	if err != nil {
		errutil.LogError(logger, "failed to open user store", err)
		return err
	}
	defer func() {
		if closeErr := users.Close(); closeErr != nil {
			slog.Warn("error closing user store", "error", closeErr)
		}
	}()

	hasher := auth.NewArgon2idHasher()

	if err := users.BootstrapRoot(ctx, cfg.RootCredsPath, hasher); err != nil {
		if errors.Is(err, sqlite.ErrCredentials) {
			errutil.LogError(logger, "root credentials file is unusable", err)
		} else {
			errutil.LogError(logger, "failed to bootstrap user store", err)
		}
		return err
	}
	slog.Info("user store ready")

	authService, err := auth.NewService(users, hasher, auth.WithLogger(logger))
	if err != nil {
		return err
	}

	sealKey, err := cfg.SealKey()
	if err != nil {
		return err
	}
	sealer, err := web.NewSealer(sealKey)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var metrics *observability.Metrics
	var obsServer *observability.Server
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, func() bool { return true })
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return err
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		metrics = obsServer.Metrics()
	}

	server, err := web.NewServer(web.ServerConfig{
		Auth:    authService,
		Sealer:  sealer,
		Metrics: metrics,
		Logger:  logger,
		Version: version,
	})
	if err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		if serveErr := server.Start(cfg.ListenAddr); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	slog.Info("greatwyrm ready", "listen_addr", cfg.ListenAddr)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case err := <-errChan:
		errutil.LogError(logger, "web server error", err)
		return err
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("error stopping web server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// monitorServerErrors cancels the context when a background server
// fails, so one failing listener takes the whole process down
// gracefully.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
