// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package main

import (
	"context"
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	accountmongo "github.com/accountd/accountd/internal/account/mongo"
	"github.com/accountd/accountd/internal/config"
	"github.com/accountd/accountd/internal/store"
)

// migrator is the part of *store.Migrator the migrate commands use.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	Pending() ([]uint, error)
	Close() error
}

// migratorFactory opens a migrator. Replaced in tests.
var migratorFactory = func(databaseURL string) (migrator, error) {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return nil, err //nolint:wrapcheck // migrator errors carry their own codes
	}
	return m, nil
}

// NewMigrateCmd creates the migrate command and its subcommands.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Apply or inspect schema migrations. With no subcommand, applies all
pending migrations. For MongoDB only "up" is supported; it creates indexes.`,
		RunE: runMigrateUp,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE:  runMigrateUp,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration (drops all account data)",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			if err := m.Down(); err != nil {
				return err //nolint:wrapcheck // migrator errors carry their own codes
			}
			cmd.Println("All migrations rolled back")
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "steps N",
		Short: "Apply N migrations, or roll back when N is negative",
		Args:  cobra.ExactArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, args []string) error {
			n, err := parseVersionArg(args[0])
			if err != nil {
				return err
			}
			if err := m.Steps(n); err != nil {
				return err //nolint:wrapcheck // migrator errors carry their own codes
			}
			cmd.Printf("Applied %d step(s)\n", n)
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			v, dirty, err := m.Version()
			if err != nil {
				return err //nolint:wrapcheck // migrator errors carry their own codes
			}
			name, err := store.MigrationName(v)
			if err != nil {
				return err //nolint:wrapcheck // migrator errors carry their own codes
			}
			line := "Version: " + strconv.FormatUint(uint64(v), 10)
			if name != "" {
				line += " (" + name + ")"
			}
			if dirty {
				line += " [dirty]"
			}
			cmd.Println(line)
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "pending",
		Short: "List migrations not yet applied",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			pending, err := m.Pending()
			if err != nil {
				return err //nolint:wrapcheck // migrator errors carry their own codes
			}
			if len(pending) == 0 {
				cmd.Println("No pending migrations")
				return nil
			}
			for _, v := range pending {
				name, err := store.MigrationName(v)
				if err != nil {
					return err //nolint:wrapcheck // migrator errors carry their own codes
				}
				cmd.Println(name)
			}
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it (clears a dirty state)",
		Args:  cobra.ExactArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, args []string) error {
			v, err := parseVersionArg(args[0])
			if err != nil {
				return err
			}
			if err := m.Force(v); err != nil {
				return err //nolint:wrapcheck // migrator errors carry their own codes
			}
			cmd.Printf("Forced version %d\n", v)
			return nil
		}),
	})

	return cmd
}

// parseVersionArg parses an integer command argument.
func parseVersionArg(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("expected an integer, got %q", s)
	}
	return n, nil
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Database.Driver == config.DriverMongo {
		return ensureMongoIndexes(cmd, cfg.Database)
	}
	return runWithMigrator(cmd, cfg, nil, func(cmd *cobra.Command, m migrator, _ []string) error {
		cmd.Println("Running migrations...")
		if err := m.Up(); err != nil {
			return err //nolint:wrapcheck // migrator errors carry their own codes
		}
		cmd.Println("Migrations completed successfully")
		return nil
	})
}

func ensureMongoIndexes(cmd *cobra.Command, cfg config.DatabaseConfig) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := accountmongo.Connect(ctx, cfg.URL, accountmongo.ConnectOptions{})
	if err != nil {
		return err //nolint:wrapcheck // connect errors carry their own codes
	}
	defer func() { _ = client.Disconnect(context.Background()) }() //nolint:errcheck // best effort

	cmd.Println("Creating indexes...")
	if err := accountmongo.EnsureIndexes(ctx, client.Database(cfg.Name)); err != nil {
		return err //nolint:wrapcheck // index errors carry their own codes
	}
	cmd.Println("Indexes ready")
	return nil
}

type migrateFunc func(cmd *cobra.Command, m migrator, args []string) error

// withMigrator adapts fn into a RunE that loads config and opens a migrator.
func withMigrator(fn migrateFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Database.Driver != config.DriverPostgres {
			return oops.Code("MIGRATION_UNSUPPORTED").
				With("driver", cfg.Database.Driver).
				Errorf("%s is only supported for postgres", cmd.Name())
		}
		return runWithMigrator(cmd, cfg, args, fn)
	}
}

func runWithMigrator(cmd *cobra.Command, cfg *config.Config, args []string, fn migrateFunc) error {
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").With("key", "database.url").Errorf("database url is required")
	}
	m, err := migratorFactory(cfg.Database.URL)
	if err != nil {
		return err //nolint:wrapcheck // migrator errors carry their own codes
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			cmd.PrintErrln("warning: closing migrator:", closeErr)
		}
	}()
	return fn(cmd, m, args)
}
