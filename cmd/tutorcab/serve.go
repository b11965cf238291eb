// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/tutorcab/tutorcab/internal/api"
	"github.com/tutorcab/tutorcab/internal/auth"
	"github.com/tutorcab/tutorcab/internal/config"
	"github.com/tutorcab/tutorcab/internal/kv"
	"github.com/tutorcab/tutorcab/internal/logging"
	"github.com/tutorcab/tutorcab/internal/observability"
	"github.com/tutorcab/tutorcab/internal/store"
	"github.com/tutorcab/tutorcab/internal/tutor"
	"github.com/tutorcab/tutorcab/pkg/errutil"
)

const serviceName = "tutorcab"

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the tutor cabinet HTTP API and, unless metrics.addr is empty,
the metrics and health server.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}
	config.BindFlags(cmd.Flags())
	return cmd
}

// runServeWithDeps starts the API with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.StoreFactory == nil {
		deps.StoreFactory = openStore
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if deps.ListenerFactory == nil {
		deps.ListenerFactory = net.Listen
	}
	if deps.Hasher == nil {
		deps.Hasher = auth.NewArgon2idHasher()
	}

	cfg, err := config.Load(config.LoadOptions{File: configFile, Flags: cmd.Flags()})
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.SetDefault(serviceName, version, cfg.Log.Format, level)

	logger.Info("starting tutorcab",
		"http_addr", cfg.HTTP.Addr,
		"base_path", cfg.HTTP.BasePath,
		"store_driver", cfg.Store.Driver,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	kvStore, err := deps.StoreFactory(ctx, cfg)
	if err != nil {
		return oops.Code("STORE_OPEN_FAILED").With("driver", cfg.Store.Driver).Wrap(err)
	}
	defer func() {
		if closeErr := kv.Close(kvStore); closeErr != nil {
			slog.Warn("error closing store", "error", closeErr)
		}
	}()
	logger.Info("store ready", "driver", cfg.Store.Driver)

	ready := func(ctx context.Context) error { return kv.Ping(ctx, kvStore) }

	// Start observability server if configured
	var obsServer ObservabilityServer
	var metrics api.MetricsRecorder
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, ready)
		obsErrChan, startErr := obsServer.Start()
		if startErr != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(startErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		metrics = obsServer.Metrics()
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	handler, err := buildAPI(cfg, kvStore, deps.Hasher, ready, metrics, logger)
	if err != nil {
		stopObservability(obsServer, cfg.HTTP.ShutdownTimeout)
		return err
	}

	listener, err := deps.ListenerFactory("tcp", cfg.HTTP.Addr)
	if err != nil {
		stopObservability(obsServer, cfg.HTTP.ShutdownTimeout)
		return oops.Code("LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}

	httpSrv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	addr := listener.Addr().String()
	cmd.Println("tutorcab listening on " + addr)
	logger.Info("api ready", "addr", addr)
	if deps.OnReady != nil {
		deps.OnReady(addr)
	}

	var serveErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case serveErr = <-errChan:
		errutil.LogError(logger, "api server error", serveErr)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("error stopping api server", "error", err)
	}
	stopObservability(obsServer, cfg.HTTP.ShutdownTimeout)

	logger.Info("shutdown complete")
	if serveErr != nil {
		return oops.Code("SERVE_FAILED").Wrap(serveErr)
	}
	return nil
}

// buildAPI wires the services over kvStore and returns the API handler.
func buildAPI(cfg *config.Config, kvStore kv.Store, hasher auth.PasswordHasher, ready api.ReadinessChecker, metrics api.MetricsRecorder, logger *slog.Logger) (http.Handler, error) {
	policy, err := cfg.CredentialPolicy()
	if err != nil {
		return nil, err
	}

	profiles := tutor.NewProfileStore(kvStore, tutor.WithStoreLogger(logger))
	sessions := auth.NewSessionStore(kvStore,
		auth.WithTTL(cfg.Session.TTL),
		auth.WithSessionLogger(logger),
	)
	authSvc, err := auth.NewAuthService(profiles, sessions, hasher,
		auth.WithCredentialPolicy(policy),
		auth.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	tracker := tutor.NewTracker(profiles,
		tutor.WithStrictOrder(cfg.Onboarding.Strict),
		tutor.WithTrackerLogger(logger),
	)
	collections := tutor.NewCollections(profiles, tutor.WithCollectionsLogger(logger))

	srv, err := api.NewServer(authSvc, tracker, collections,
		api.WithBasePath(cfg.HTTP.BasePath),
		api.WithAllowedOrigins(cfg.HTTP.CORS.AllowedOrigins),
		api.WithReadiness(ready),
		api.WithMetrics(metrics),
		api.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return srv.Router(), nil
}

// openStore opens the configured backend, waits for it to answer and
// applies the key prefix.
func openStore(ctx context.Context, cfg *config.Config) (kv.Store, error) {
	var s kv.Store
	switch cfg.Store.Driver {
	case config.DriverRedis:
		s = kv.NewRedisStore(kv.RedisOptions{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
	case config.DriverPostgres:
		pool, err := store.Connect(ctx, cfg.Store.Postgres.URL, cfg.Store.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		s = kv.NewPostgresStore(pool)
		if cfg.Store.Postgres.AutoMigrate {
			if err := migrateUp(cfg.Store.Postgres.URL); err != nil {
				_ = kv.Close(s) //nolint:errcheck // migration error takes precedence
				return nil, err
			}
		}
	default:
		s = kv.NewMemoryStore()
	}

	if err := kv.WaitReady(ctx, s, cfg.Store.ConnectTimeout); err != nil {
		_ = kv.Close(s) //nolint:errcheck // readiness error takes precedence
		return nil, err
	}
	if cfg.Store.Prefix != "" {
		s = kv.WithPrefix(s, cfg.Store.Prefix)
	}
	return s, nil
}

func migrateUp(databaseURL string) error {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			slog.Warn("error closing migrator", "error", closeErr)
		}
	}()
	slog.Info("applying migrations")
	return m.Up()
}

func stopObservability(obs ObservabilityServer, timeout time.Duration) {
	if obs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := obs.Stop(ctx); err != nil {
		slog.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors monitors a server's error channel and cancels the context on error.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
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
