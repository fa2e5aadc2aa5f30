// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/accountd/accountd/internal/account"
	"github.com/accountd/accountd/internal/config"
	"github.com/accountd/accountd/internal/mail"
	"github.com/accountd/accountd/internal/observability"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// BackendFactory opens the configured user store.
	// Default: openBackend
	BackendFactory func(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Backend, error)

	// SenderFactory builds the mail transport.
	// Default: newSender
	SenderFactory func(cfg config.MailConfig) (mail.Sender, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// ListenerFactory creates the API listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	if d == nil {
		d = &ServeDeps{}
	}
	if d.BackendFactory == nil {
		d.BackendFactory = openBackend
	}
	if d.SenderFactory == nil {
		d.SenderFactory = newSender
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if d.ListenerFactory == nil {
		d.ListenerFactory = net.Listen
	}
	return d
}

// Backend is an opened user store.
type Backend struct {
	Users  account.UserRepository
	Resets account.ResetTokenRepository
	// Ping reports whether the store is reachable.
	Ping func(ctx context.Context) error
	// Close releases connections.
	Close func(ctx context.Context) error
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}
