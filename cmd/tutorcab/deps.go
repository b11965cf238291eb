// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

package main

import (
	"context"
	"net"

	"github.com/tutorcab/tutorcab/internal/auth"
	"github.com/tutorcab/tutorcab/internal/config"
	"github.com/tutorcab/tutorcab/internal/kv"
	"github.com/tutorcab/tutorcab/internal/observability"
	"github.com/tutorcab/tutorcab/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// StoreFactory opens the configured key-value backend.
	// Default: openStore
	StoreFactory func(ctx context.Context, cfg *config.Config) (kv.Store, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// ListenerFactory creates the API listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)

	// Hasher hashes and verifies passwords.
	// Default: auth.NewArgon2idHasher
	Hasher auth.PasswordHasher

	// OnReady is called with the API address once the server accepts connections.
	OnReady func(addr string)
}

// ObservabilityServer is the part of *observability.Server serve uses.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// MigrateDeps contains injectable dependencies for the migrate commands.
type MigrateDeps struct {
	// MigratorFactory opens a migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)
}

// Migrator is the part of *store.Migrator the migrate commands use.
type Migrator interface {
	Up() error
	Down() error
	Force(version int) error
	Status() (*store.Status, error)
	Close() error
}

func (d *MigrateDeps) withDefaults() *MigrateDeps {
	out := MigrateDeps{}
	if d != nil {
		out = *d
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(databaseURL string) (Migrator, error) {
			m, err := store.NewMigrator(databaseURL)
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	return &out
}
