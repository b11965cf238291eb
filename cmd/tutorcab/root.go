// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/tutorcab/tutorcab/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the tutorcab CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tutorcab",
		Short: "tutorcab - a tutor's personal cabinet backend",
		Long: `tutorcab serves the tutor cabinet API: phone and password
registration, opaque sessions, onboarding progress and the tutor's
students, lessons and materials, kept in a key-value store.`,
		SilenceUsage: true,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/tutorcab/config.yaml)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// NewConfigCmd creates the config subcommand.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration serve would run with, after defaults, the
config file, TUTORCAB_ environment variables and flags are applied.
Secrets are redacted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.LoadOptions{File: configFile, Flags: cmd.Flags()})
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			cmd.Print(string(out))
			return nil
		},
	}
	config.BindFlags(cmd.Flags())
	return cmd
}
