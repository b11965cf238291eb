// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

package main

import (
	"log/slog"
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/tutorcab/tutorcab/internal/config"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return newMigrateCmd(nil)
}

func newMigrateCmd(deps *MigrateDeps) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Apply, roll back or inspect the kv_store schema migrations of the
PostgreSQL store driver. The database URL comes from store.postgres.url.`,
	}
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL URL (overrides store.postgres.url)")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, func(m Migrator) error {
				cmd.Println("Running migrations...")
				if err := m.Up(); err != nil {
					return err
				}
				cmd.Println("Migrations completed successfully")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		Long:  `Roll back every migration. This drops kv_store and all tutor data in it.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, func(m Migrator) error {
				cmd.Println("Rolling back migrations...")
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("Rollback completed successfully")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, func(m Migrator) error {
				st, err := m.Status()
				if err != nil {
					return err
				}
				cmd.Printf("Current version: %d\n", st.Current)
				cmd.Printf("Latest version:  %d\n", st.Latest)
				if st.Dirty {
					cmd.Println("State: DIRTY (fix the database, then run 'migrate force <version>')")
				}
				if len(st.Pending) == 0 {
					cmd.Println("No pending migrations")
					return nil
				}
				cmd.Printf("Pending migrations (%d):\n", len(st.Pending))
				for _, mig := range st.Pending {
					cmd.Printf("  %06d %s\n", mig.Version, mig.Name)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Mark a version as applied without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return withMigrator(cmd, deps, func(m Migrator) error {
				if err := m.Force(v); err != nil {
					return err
				}
				cmd.Printf("Forced version %d\n", v)
				return nil
			})
		},
	})

	return cmd
}

// withMigrator resolves the database URL, opens a migrator, runs fn and closes it.
func withMigrator(cmd *cobra.Command, deps *MigrateDeps, fn func(Migrator) error) error {
	databaseURL, err := migrateDatabaseURL(cmd)
	if err != nil {
		return err
	}

	m, err := deps.MigratorFactory(databaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "open migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			slog.Warn("error closing migrator", "error", closeErr)
		}
	}()
	return fn(m)
}

// migrateDatabaseURL prefers --database-url, then the loaded configuration.
func migrateDatabaseURL(cmd *cobra.Command) (string, error) {
	if v, err := cmd.Flags().GetString("database-url"); err == nil && v != "" {
		return v, nil
	}
	cfg, err := config.Load(config.LoadOptions{File: configFile})
	if err != nil {
		return "", err
	}
	if cfg.Store.Postgres.URL == "" {
		return "", oops.Code("CONFIG_INVALID").
			With("key", "store.postgres.url").
			Errorf("store.postgres.url or --database-url is required")
	}
	return cfg.Store.Postgres.URL, nil
}

func parseForceVersion(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Wrapf(err, "version must be an integer")
	}
	if v < 0 {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be non-negative, got %d", v)
	}
	return v, nil
}
