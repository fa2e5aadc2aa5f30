// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/accountd/accountd/internal/account"
	accountmongo "github.com/accountd/accountd/internal/account/mongo"
	accountpg "github.com/accountd/accountd/internal/account/postgres"
	"github.com/accountd/accountd/internal/config"
	"github.com/accountd/accountd/internal/mail"
	"github.com/accountd/accountd/internal/store"
)

// openBackend connects to the store named by cfg.Driver.
func openBackend(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Backend, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	case config.DriverMongo:
		return openMongo(ctx, cfg, logger)
	default:
		return nil, oops.Code("CONFIG_INVALID").
			With("key", "database.driver").
			Errorf("unknown database driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Backend, error) {
	pool, err := store.Connect(ctx, cfg.URL, store.ConnectOptions{Logger: logger})
	if err != nil {
		return nil, oops.With("driver", cfg.Driver).Wrap(err)
	}
	return &Backend{
		Users:  accountpg.NewUserRepository(pool),
		Resets: accountpg.NewResetTokenRepository(pool),
		Ping:   pool.Ping,
		Close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}, nil
}

func openMongo(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Backend, error) {
	client, err := accountmongo.Connect(ctx, cfg.URL, accountmongo.ConnectOptions{Logger: logger})
	if err != nil {
		return nil, oops.With("driver", cfg.Driver).Wrap(err)
	}
	db := client.Database(cfg.Name)
	if err := accountmongo.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx) //nolint:errcheck // index error takes precedence
		return nil, oops.With("driver", cfg.Driver).Wrap(err)
	}
	return &Backend{
		Users:  accountmongo.NewUserRepository(db),
		Resets: accountmongo.NewResetTokenRepository(db),
		Ping:   accountmongo.Healthcheck(client),
		Close:  client.Disconnect,
	}, nil
}

// newSender builds the mail transport named by cfg.Driver.
func newSender(cfg config.MailConfig) (mail.Sender, error) {
	switch cfg.Driver {
	case config.MailPostmark:
		sender, err := mail.NewPostmarkSender(mail.PostmarkConfig{
			ServerToken:  cfg.Postmark.ServerToken,
			AccountToken: cfg.Postmark.AccountToken,
			From:         cfg.Sender,
			ReplyTo:      cfg.Support,
		})
		if err != nil {
			return nil, err //nolint:wrapcheck // mail errors carry their own codes
		}
		return sender, nil
	case config.MailDev:
		return mail.NewDevSender(cfg.DevDir), nil
	default:
		return nil, oops.Code("CONFIG_INVALID").
			With("key", "mail.driver").
			Errorf("unknown mail driver %q", cfg.Driver)
	}
}

// buildService wires the account service on top of an opened backend.
func buildService(cfg *config.Config, backend *Backend, sender mail.Sender, logger *slog.Logger) (*account.Service, error) {
	credentials, err := account.NewCredentials(backend.Users,
		account.NewArgon2idHasherWithParams(cfg.Auth.Argon2.Params()))
	if err != nil {
		return nil, err //nolint:wrapcheck // constructor errors carry their own codes
	}
	sessions, err := account.NewSessionIssuer(cfg.Auth.JWTSecret, account.WithSessionTTL(cfg.Auth.SessionTTL))
	if err != nil {
		return nil, err //nolint:wrapcheck // constructor errors carry their own codes
	}
	resets, err := account.NewResetTokens(backend.Resets, cfg.Auth.ResetTTL)
	if err != nil {
		return nil, err //nolint:wrapcheck // constructor errors carry their own codes
	}
	mailer, err := mail.NewResetMailer(sender, cfg.App.Team)
	if err != nil {
		return nil, err //nolint:wrapcheck // constructor errors carry their own codes
	}

	svc, err := account.NewService(account.ServiceDeps{
		Credentials: credentials,
		Sessions:    sessions,
		Resets:      resets,
		Notifier:    mailer,
		FrontendURL: cfg.App.FrontendURL,
		Logger:      logger,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck // constructor errors carry their own codes
	}
	return svc, nil
}
