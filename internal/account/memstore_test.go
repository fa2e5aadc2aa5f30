// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package account_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/accountd/accountd/internal/account"
)

// memUsers is an in-memory UserRepository.
type memUsers struct {
	mu    sync.Mutex
	users map[ulid.ULID]account.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[ulid.ULID]account.User)}
}

func (m *memUsers) Create(_ context.Context, user *account.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return account.ErrDuplicateEmail
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id ulid.ULID) (*account.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*account.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, account.ErrNotFound
}

func (m *memUsers) Update(_ context.Context, user *account.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return account.ErrNotFound
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memUsers) passwordHash(id ulid.ULID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id].PasswordHash
}

// memResets is an in-memory ResetTokenRepository keyed by owner.
type memResets struct {
	mu     sync.Mutex
	tokens map[ulid.ULID]account.ResetToken
}

func newMemResets() *memResets {
	return &memResets{tokens: make(map[ulid.ULID]account.ResetToken)}
}

func (m *memResets) Replace(_ context.Context, token *account.ResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.UserID] = *token
	return nil
}

func (m *memResets) Consume(_ context.Context, tokenHash string, now time.Time) (ulid.ULID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for owner, tok := range m.tokens {
		if tok.TokenHash == tokenHash && tok.ExpiresAt.After(now) {
			delete(m.tokens, owner)
			return owner, nil
		}
	}
	return ulid.ULID{}, account.ErrNotFound
}

func (m *memResets) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for owner, tok := range m.tokens {
		if !tok.ExpiresAt.After(now) {
			delete(m.tokens, owner)
			n++
		}
	}
	return n, nil
}

func (m *memResets) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}
