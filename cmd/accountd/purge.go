// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/accountd/accountd/internal/account"
	"github.com/accountd/accountd/internal/config"
)

// NewPurgeResetsCmd creates the purge-resets subcommand.
func NewPurgeResetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-resets",
		Short: "Delete expired password reset tokens",
		Long: `Delete password reset tokens whose expiry has passed. Expired tokens
are already rejected; this only reclaims storage. Run it from cron.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runPurgeResets(ctx, cmd, cfg, openBackend)
		},
	}
}

func runPurgeResets(
	ctx context.Context,
	cmd *cobra.Command,
	cfg *config.Config,
	open func(context.Context, config.DatabaseConfig, *slog.Logger) (*Backend, error),
) error {
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").With("key", "database.url").Errorf("database url is required")
	}
	backend, err := open(ctx, cfg.Database, slog.Default())
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "open backend").Wrap(err)
	}
	defer func() { _ = backend.Close(context.Background()) }() //nolint:errcheck // best effort

	resets, err := account.NewResetTokens(backend.Resets, cfg.Auth.ResetTTL)
	if err != nil {
		return err //nolint:wrapcheck // constructor errors carry their own codes
	}
	n, err := resets.PurgeExpired(ctx)
	if err != nil {
		return err //nolint:wrapcheck // purge errors carry their own codes
	}
	cmd.Printf("Deleted %d expired reset token(s)\n", n)
	return nil
}
