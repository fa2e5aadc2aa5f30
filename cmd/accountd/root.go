// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/accountd/accountd/internal/config"
	"github.com/accountd/accountd/internal/xdg"
)

// Global flags available to all subcommands.
var (
	configFile string
	envFile    string
)

// NewRootCmd creates the root command for the accountd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accountd",
		Short: "accountd - user account and session service",
		Long: `accountd manages user accounts: registration, login sessions,
profile updates and password resets by email.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML, default: XDG_CONFIG_HOME/accountd/config.yaml if present)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file (ignored if missing)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewPurgeResetsCmd())

	return cmd
}

// loadConfig resolves configuration for cmd from defaults, the config file,
// the dotenv file, the environment and changed flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	file := configFile
	if file == "" {
		file = xdg.FindConfigFile()
	}
	cfg, err := config.Load(config.Options{
		File:   file,
		DotEnv: envFile,
		Flags:  cmd.Flags(),
	})
	if err != nil {
		return nil, err //nolint:wrapcheck // config errors carry their own codes
	}
	return cfg, nil
}
