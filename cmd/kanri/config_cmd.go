// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kanri/kanri/internal/config"
)

// NewConfigCmd creates the config subcommand.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect server configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Long: `Print the configuration serve would run with, after merging the config
file and flags. Secrets are redacted. Validation problems are reported on
stderr but do not stop the output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := resolveConfigFile()
			if err != nil {
				return err
			}
			cfg, err := config.Read(path, cmd.Flags())
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			if verr := cfg.Validate(); verr != nil {
				cmd.PrintErrf("warning: %v\n", verr)
			}
			return nil
		},
	}
	config.RegisterFlags(show.Flags())

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and exit non-zero when invalid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := resolveConfigFile()
			if err != nil {
				return err
			}
			if _, err := config.Load(path, cmd.Flags()); err != nil {
				return err
			}
			cmd.Println("Configuration is valid")
			return nil
		},
	}
	config.RegisterFlags(validate.Flags())

	schema := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.AddCommand(show, validate, schema)
	return cmd
}
