// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/kanri/kanri/internal/auth"
	"github.com/kanri/kanri/internal/config"
	"github.com/kanri/kanri/internal/observability"
	"github.com/kanri/kanri/internal/project"
	"github.com/kanri/kanri/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// BackendFactory opens the repositories selected by cfg.Store.
	// Default: openBackend
	BackendFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error)

	// MigratorFactory opens a migrator for --auto-migrate.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// ObservabilityServerFactory creates the metrics and health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// APIServerFactory creates the JSON API server.
	// Default: httpapi.NewServer
	APIServerFactory func(addr string, handler http.Handler, logger *slog.Logger) APIServer

	// Started is called with the bound API address once every listener is up.
	Started func(apiAddr string)
}

// MigrateDeps contains injectable dependencies for the migrate commands.
type MigrateDeps struct {
	// MigratorFactory opens a migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)
}

// UserDeps contains injectable dependencies for the user commands.
type UserDeps struct {
	// RepositoryFactory opens the user repository. The returned func
	// releases it.
	// Default: postgres repository over store.Connect
	RepositoryFactory func(ctx context.Context, databaseURL string) (auth.UserRepository, func(), error)
}

// Backend is the storage the API server runs on.
type Backend struct {
	Users    auth.UserRepository
	Projects project.Repository
	// Ready is the readiness probe; nil means always ready.
	Ready observability.ReadinessChecker
	Close func()
}

// Migrator interface wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	Status() (*store.MigrationStatus, error)
	Close() error
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// APIServer interface wraps the methods used from httpapi.Server.
type APIServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

func defaultMigratorFactory(databaseURL string) (Migrator, error) {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return nil, err
	}
	return m, nil
}
