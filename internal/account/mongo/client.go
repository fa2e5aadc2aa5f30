// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

// Package mongo provides MongoDB implementations of account repositories.
package mongo

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names.
const (
	UsersCollection  = "users"
	ResetsCollection = "password_resets"
)

// ConnectOptions tune the startup connection attempt.
type ConnectOptions struct {
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
	MaxRetries     uint64
	RetryInterval  time.Duration
	Logger         *slog.Logger
}

func (o ConnectOptions) withDefaults() ConnectOptions {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	if o.MaxPoolSize == 0 {
		o.MaxPoolSize = 100
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Connect opens a client for uri and pings it, retrying at a constant
// interval while the server comes up.
func Connect(ctx context.Context, uri string, opts ConnectOptions) (*mongo.Client, error) {
	opts = opts.withDefaults()

	client, err := mongo.Connect(options.Client().
		ApplyURI(uri).
		SetConnectTimeout(opts.ConnectTimeout).
		SetMaxPoolSize(opts.MaxPoolSize).
		SetRetryWrites(true).
		SetRetryReads(true))
	if err != nil {
		return nil, oops.Code("MONGO_CONFIG_INVALID").With("operation", "create client").Wrap(err)
	}

	attempt := 0
	backoff := retry.WithMaxRetries(opts.MaxRetries, retry.NewConstant(opts.RetryInterval))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if pingErr := client.Ping(ctx, nil); pingErr != nil {
			opts.Logger.WarnContext(ctx, "mongo not ready", "attempt", attempt, "error", pingErr.Error())
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx)) //nolint:errcheck // ping error takes precedence
		return nil, oops.Code("MONGO_CONNECT_FAILED").
			With("operation", "ping").
			With("attempts", attempt).
			Wrap(err)
	}
	return client, nil
}

// Healthcheck returns a readiness probe that pings the server.
func Healthcheck(client *mongo.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx, nil); err != nil {
			return oops.Code("MONGO_UNHEALTHY").Wrap(err)
		}
		return nil
	}
}
