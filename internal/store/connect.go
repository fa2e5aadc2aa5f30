// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

// Package store provides database connectivity and schema migrations.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// ConnectOptions tune the startup connection attempt.
type ConnectOptions struct {
	// MaxRetries bounds the ping attempts after the first. Default 5.
	MaxRetries uint64
	// BaseDelay is the first backoff interval. Default 250ms.
	BaseDelay time.Duration
	// MaxDelay caps a single backoff interval. Default 5s.
	MaxDelay time.Duration
	Logger   *slog.Logger
}

func (o ConnectOptions) withDefaults() ConnectOptions {
	if o.MaxRetries == 0 {
		o.MaxRetries = 5
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = 250 * time.Millisecond
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 5 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Connect opens a pgx pool and pings it with exponential backoff so the
// service tolerates a database that is still starting.
func Connect(ctx context.Context, databaseURL string, opts ConnectOptions) (*pgxpool.Pool, error) {
	opts = opts.withDefaults()

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	backoff := retry.WithMaxRetries(opts.MaxRetries,
		retry.WithCappedDuration(opts.MaxDelay, retry.NewExponential(opts.BaseDelay)))

	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if pingErr := pool.Ping(ctx); pingErr != nil {
			opts.Logger.WarnContext(ctx, "database not ready",
				"attempt", attempt,
				"host", cfg.ConnConfig.Host,
				"error", pingErr.Error())
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping").
			With("attempts", attempt).
			Wrap(err)
	}
	return pool, nil
}
