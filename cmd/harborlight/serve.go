// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/harborlight/harborlight/internal/observability"
	"github.com/harborlight/harborlight/pkg/errutil"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API. Metrics and health probes are served on a
separate address when metrics.addr is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd, nil)
		},
	}
}

// runServeWithDeps starts the server with injectable dependencies and blocks
// until a shutdown signal, a server error, or cancellation of the command
// context.
func runServeWithDeps(cmd *cobra.Command, deps *Deps) error {
	deps = deps.withDefaults()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := deps.ConfigLoader(cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := setupLogging(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting harborlight",
		"addr", cfg.Server.Addr,
		"environment", cfg.Server.Environment,
		"code_store", cfg.Auth.CodeStore,
		"mail_transport", cfg.Mail.Transport,
	)

	pool, err := deps.PoolOpener(ctx, poolConfig(cfg))
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := migrateUp(deps, cfg.Database.URL.Value()); err != nil {
			return err
		}
		logger.InfoContext(ctx, "migrations applied")
	}

	b := postgresBackend(pool)
	codes, err := newCodeStore(ctx, cfg, b)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := codes.close(); closeErr != nil {
			logger.Warn("error closing code store", "error", closeErr)
		}
	}()

	var metrics *observability.Metrics
	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, readiness(pool.Ping, codes.ping))
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(err)
		}
		go monitorServerErrors(ctx, stop, obsErrChan, "observability")
		metrics = obsServer.Metrics()
		logger.InfoContext(ctx, "observability server started", "addr", obsServer.Addr())
	}

	mailer, err := newMailer(cfg, logger, metrics)
	if err != nil {
		return err
	}
	svcs, err := buildServices(cfg, b, mailer, codes)
	if err != nil {
		return err
	}
	api, err := buildAPI(cfg, svcs, logger, metrics)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", cfg.Server.Addr).Wrap(err)
	}
	server := &http.Server{
		Handler:           api.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	cmd.Println("Harborlight listening on " + listener.Addr().String())
	logger.InfoContext(ctx, "api server ready", "addr", listener.Addr().String())

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case serveErr = <-errChan:
		serveErr = oops.Code("SERVE_FAILED").Wrap(serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		errutil.LogError(logger, "error stopping api server", err)
	}
	if err := svcs.deliveries.Wait(shutdownCtx); err != nil {
		errutil.LogError(logger, "pending mail deliveries abandoned", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			errutil.LogError(logger, "error stopping observability server", err)
		}
	}

	logger.Info("shutdown complete")
	return serveErr
}

// readiness reports ready when every configured backend answers.
func readiness(checks ...func(ctx context.Context) error) observability.ReadinessChecker {
	return func(ctx context.Context) error {
		for _, check := range checks {
			if check == nil {
				continue
			}
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// monitorServerErrors cancels the process context when a background server
// fails.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errChan <-chan error, name string) {
	select {
	case err, ok := <-errChan:
		if ok && err != nil {
			slog.Error("server failed, shutting down", "server", name, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
