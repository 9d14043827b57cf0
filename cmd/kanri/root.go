// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/kanri/kanri/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Kanri CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kanri",
		Short: "Kanri - project management API server",
		Long: `Kanri serves the project management JSON API: JWT login with rotating
refresh cookies, and per-user project and task listings backed by PostgreSQL.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: $XDG_CONFIG_HOME/kanri/config.yaml if present)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewUserCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// resolveConfigFile returns --config, or the XDG default file when it exists.
func resolveConfigFile() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	return xdg.DefaultConfigFile()
}
