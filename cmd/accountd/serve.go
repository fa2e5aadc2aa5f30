// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/accountd/accountd/internal/config"
	"github.com/accountd/accountd/internal/httpapi"
	"github.com/accountd/accountd/internal/logging"
	"github.com/accountd/accountd/internal/observability"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the account API server",
		Long: `Start the HTTP API that serves /api/users, plus the metrics and
health endpoints when metrics-addr is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}
}

// runServeWithDeps starts the API server with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := cfg.Validate(); err != nil {
		return oops.With("operation", "validate configuration").Wrap(err)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return oops.With("operation", "set up logging").Wrap(err)
	}
	logger := logging.SetDefault("accountd", version, cfg.Log.Format, level)

	logger.Info("starting accountd",
		"http_addr", cfg.HTTP.Addr,
		"database_driver", cfg.Database.Driver,
		"mail_driver", cfg.Mail.Driver,
	)

	backend, err := deps.BackendFactory(ctx, cfg.Database, logger)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "open backend").Wrap(err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer closeCancel()
		if closeErr := backend.Close(closeCtx); closeErr != nil {
			logger.Warn("error closing backend", "error", closeErr)
		}
	}()
	logger.Info("connected to database", "driver", cfg.Database.Driver)

	sender, err := deps.SenderFactory(cfg.Mail)
	if err != nil {
		return oops.With("operation", "create mail sender").Wrap(err)
	}

	svc, err := buildService(cfg, backend, sender, logger)
	if err != nil {
		return oops.With("operation", "build account service").Wrap(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start observability server if configured
	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, backend.Ping)
		obsErrChan, startErr := obsServer.Start()
		if startErr != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(startErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability", logger)
		metrics = obsServer.Metrics()
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	listener, err := deps.ListenerFactory("tcp", cfg.HTTP.Addr)
	if err != nil {
		stopObservability(obsServer, logger)
		return oops.Code("LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}

	router := httpapi.NewRouter(svc, httpapi.Options{
		Cookie: httpapi.CookieOptions{
			Name:     cfg.Cookie.Name,
			Secure:   cfg.Cookie.Secure,
			SameSite: httpapi.ParseSameSite(cfg.Cookie.SameSite),
			Domain:   cfg.Cookie.Domain,
		},
		Metrics: metrics,
		Logger:  logger,
	})
	server := httpapi.NewServer(cfg.HTTP.Addr, router, cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout)

	errChan := make(chan error, 1)
	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("accountd started")
	logger.Info("accountd ready", "http_addr", listener.Addr().String())

	var runErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case serveErr := <-errChan:
		runErr = oops.Code("HTTP_SERVE_FAILED").Wrap(serveErr)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping API server", "error", err)
	}
	stopObservability(obsServer, logger)

	logger.Info("shutdown complete")
	return runErr
}

func stopObservability(obsServer ObservabilityServer, logger *slog.Logger) {
	if obsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := obsServer.Stop(ctx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports an error.
// It returns once errCh yields or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
