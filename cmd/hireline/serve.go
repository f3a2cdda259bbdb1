// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/hireline/hireline/internal/auth"
	"github.com/hireline/hireline/internal/config"
	"github.com/hireline/hireline/internal/observability"
	"github.com/hireline/hireline/internal/store"
	"github.com/hireline/hireline/pkg/errutil"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the identity service",
		Long: `Connect to the database, build the identity services and run
background maintenance (expired code purge) with metrics and health probes
until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, deps)
		},
	}

	defaults := config.Default()
	addLogFlags(cmd)
	cmd.Flags().String("observability-addr", defaults.Observability.Addr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("otp-store", defaults.OTP.Store, "one-time code store (postgres or redis)")
	cmd.Flags().Bool("database-auto-migrate", defaults.Database.AutoMigrate, "apply pending migrations at startup")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, deps *Deps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.RequireServe(); err != nil {
		return err
	}
	logger, err := setupLogging(cmd, cfg)
	if err != nil {
		return err
	}

	logger.Info("starting identity service",
		"version", version,
		"otp_store", cfg.OTP.Store,
		"mail_driver", cfg.Mail.Driver,
		"google_enabled", cfg.Google.ClientID != "")

	pool, err := deps.Connect(ctx, cfg.Database.URL, connectOptions(cfg, logger))
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to database")

	if cfg.Database.AutoMigrate {
		if err := migrateUp(deps, cfg.Database.URL); err != nil {
			return err
		}
		logger.Info("database schema up to date")
	}

	svc, err := buildServices(cfg, pool, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := svc.Close(); closeErr != nil {
			logger.Warn("error closing redis client", "error", closeErr)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	janitor := auth.NewJanitor(svc.otp, cfg.OTP.PurgeInterval, logger)
	janitor.Start(ctx)
	defer janitor.Stop()

	var obsServer ObservabilityServer
	if cfg.Observability.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(observability.Config{
			Addr:    cfg.Observability.Addr,
			Version: version,
			Ready:   svc.Ready,
			Logger:  logger,
		}, auth.RegisterMetrics)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return err
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability", logger)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Identity service started")

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			errutil.LogError(logger, "error stopping observability server", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

func connectOptions(cfg config.Config, logger *slog.Logger) store.ConnectOptions {
	opts := store.DefaultConnectOptions()
	opts.Attempts = cfg.Database.ConnectAttempts
	opts.Logger = logger
	return opts
}

// monitorServerErrors cancels ctx when the server reports an error. It
// returns when the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			errutil.LogError(logger, "server error, triggering shutdown", oops.With("server", serverName).Wrap(err))
			cancel()
		}
	case <-ctx.Done():
	}
}
