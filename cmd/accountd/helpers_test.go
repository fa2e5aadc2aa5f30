// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package main

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/accountd/accountd/internal/account"
)

type stubUsers struct{}

func (stubUsers) Create(context.Context, *account.User) error { return nil }

func (stubUsers) GetByID(context.Context, ulid.ULID) (*account.User, error) {
	return nil, account.ErrNotFound
}

func (stubUsers) GetByEmail(context.Context, string) (*account.User, error) {
	return nil, account.ErrNotFound
}

func (stubUsers) Update(context.Context, *account.User) error { return account.ErrNotFound }

type stubResets struct {
	expired int64
	purged  atomic.Int32
}

func (*stubResets) Replace(context.Context, *account.ResetToken) error { return nil }

func (*stubResets) Consume(context.Context, string, time.Time) (ulid.ULID, error) {
	return ulid.ULID{}, account.ErrNotFound
}


func (s *stubResets) DeleteExpired(context.Context, time.Time) (int64, error) {
	s.purged.Add(1)
	return s.expired, nil
}

// stubBackend returns a Backend over stub repositories and a flag set when
// the backend is closed.
func stubBackend(resets *stubResets) (*Backend, *atomic.Bool) {
	closed := &atomic.Bool{}
	if resets == nil {
		resets = &stubResets{}
	}
	return &Backend{
		Users:  stubUsers{},
		Resets: resets,
		Ping:   func(context.Context) error { return nil },
		Close: func(context.Context) error {
			closed.Store(true)
			return nil
		},
	}, closed
}
