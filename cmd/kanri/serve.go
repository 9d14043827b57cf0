// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/kanri/kanri/internal/auth"
	authmemory "github.com/kanri/kanri/internal/auth/memory"
	authpostgres "github.com/kanri/kanri/internal/auth/postgres"
	"github.com/kanri/kanri/internal/config"
	"github.com/kanri/kanri/internal/httpapi"
	"github.com/kanri/kanri/internal/logging"
	"github.com/kanri/kanri/internal/observability"
	"github.com/kanri/kanri/internal/project"
	projectmemory "github.com/kanri/kanri/internal/project/memory"
	projectpostgres "github.com/kanri/kanri/internal/project/postgres"
	"github.com/kanri/kanri/internal/store"
	"github.com/kanri/kanri/internal/tokens"
)

const (
	serviceName     = "kanri"
	shutdownTimeout = 5 * time.Second
)

type serveOptions struct {
	autoMigrate bool
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the JSON API server and, when metrics.addr is set, the metrics and
health server. Configuration comes from --config, then flags.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, opts, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().BoolVar(&opts.autoMigrate, "auto-migrate", false, "apply pending migrations before serving (postgres store only)")

	return cmd
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	if d == nil {
		d = &ServeDeps{}
	}
	if d.BackendFactory == nil {
		d.BackendFactory = openBackend
	}
	if d.MigratorFactory == nil {
		d.MigratorFactory = defaultMigratorFactory
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, checker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, checker)
		}
	}
	if d.APIServerFactory == nil {
		d.APIServerFactory = func(addr string, handler http.Handler, logger *slog.Logger) APIServer {
			return httpapi.NewServer(addr, handler, logger)
		}
	}
	return d
}

// runServeWithDeps starts the API server with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, opts *serveOptions, deps *ServeDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	deps = deps.withDefaults()

	path, err := resolveConfigFile()
	if err != nil {
		return err
	}
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return err
	}
	logger := logging.SetDefault(serviceName, version, cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if opts.autoMigrate {
		if cfg.Store != config.StorePostgres {
			logger.Warn("ignoring --auto-migrate for non-postgres store", "store", cfg.Store)
		} else if err := applyMigrations(cmd, deps.MigratorFactory, cfg.Database.URL); err != nil {
			return err
		}
	}

	backend, err := deps.BackendFactory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if backend.Close != nil {
		defer backend.Close()
	}

	obsServer, metrics, err := startObservability(ctx, cancel, cfg, deps, backend.Ready, logger)
	if err != nil {
		return err
	}

	handler, err := buildHandler(cfg, backend, metrics, logger)
	if err != nil {
		stopServer(obsServer, "observability", logger)
		return err
	}

	apiServer := deps.APIServerFactory(cfg.HTTP.Addr, handler, logger)
	apiErrChan, err := apiServer.Start()
	if err != nil {
		stopServer(obsServer, "observability", logger)
		return oops.Code("SERVER_START_FAILED").With("server", "api").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErrChan, "api")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Kanri server started")
	logger.Info("server ready", "http_addr", apiServer.Addr(), "store", cfg.Store)
	if deps.Started != nil {
		deps.Started(apiServer.Addr())
	}

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	stopServer(apiServer, "api", logger)
	stopServer(obsServer, "observability", logger)
	logger.Info("shutdown complete")
	return nil
}

// openBackend wires the repositories for cfg.Store.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("using in-memory store, data is lost on exit")
		return &Backend{
			Users:    authmemory.NewUserRepository(),
			Projects: projectmemory.NewRepository(),
		}, nil
	}

	opts := store.DefaultConnectOptions()
	opts.Logger = logger
	pool, err := store.Connect(ctx, cfg.Database.URL, opts)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	return &Backend{
		Users:    authpostgres.NewUserRepository(pool),
		Projects: projectpostgres.NewRepository(pool),
		Ready:    pool.Ping,
		Close:    pool.Close,
	}, nil
}

// startObservability starts the metrics server when configured. Without
// one, metrics go to a private registry nobody scrapes.
func startObservability(
	ctx context.Context,
	cancel context.CancelFunc,
	cfg *config.Config,
	deps *ServeDeps,
	ready observability.ReadinessChecker,
	logger *slog.Logger,
) (ObservabilityServer, *observability.Metrics, error) {
	if cfg.Metrics.Addr == "" {
		return nil, observability.NewMetrics(prometheus.NewRegistry()), nil
	}

	server := deps.ObservabilityServerFactory(cfg.Metrics.Addr, ready)
	errChan, err := server.Start()
	if err != nil {
		return nil, nil, oops.Code("SERVER_START_FAILED").With("server", "observability").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, errChan, "observability")
	logger.Info("observability server started", "addr", server.Addr())
	return server, server.Metrics(), nil
}

func buildHandler(cfg *config.Config, backend *Backend, metrics *observability.Metrics, logger *slog.Logger) (http.Handler, error) {
	hasher, err := auth.NewPasswordHasher(cfg.Auth.Hasher, cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	issuer, err := tokens.NewIssuer(cfg.Auth.Secret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	if err != nil {
		return nil, err
	}
	authService, err := auth.NewAuthServiceWithLogger(backend.Users, hasher, logger)
	if err != nil {
		return nil, err
	}
	sessions, err := auth.NewSessionManagerWithGenerator(backend.Users, auth.NewTokenID, logger)
	if err != nil {
		return nil, err
	}
	projects, err := project.NewService(backend.Projects, logger)
	if err != nil {
		return nil, err
	}

	return httpapi.NewHandler(httpapi.Deps{
		Auth:         authService,
		Sessions:     sessions,
		Users:        backend.Users,
		Tokens:       issuer,
		Projects:     projects,
		Metrics:      metrics,
		Logger:       logger,
		CORS:         httpapi.CORSOptions{AllowedOrigins: cfg.CORS.AllowedOrigins},
		CookieSecure: cfg.Auth.CookieSecure,
	})
}

type stopper interface {
	Stop(ctx context.Context) error
}

func stopServer(s stopper, name string, logger *slog.Logger) {
	if s == nil {
		return
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := s.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping server", "server", name, "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports an error, so one
// failing listener shuts the whole process down. It returns when the
// channel closes or ctx ends.
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
