// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package account

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Credentials is the credential store: user persistence plus the step that
// hashes a pending password before any write.
type Credentials struct {
	users  UserRepository
	hasher PasswordHasher
}

// NewCredentials creates a Credentials store.
func NewCredentials(users UserRepository, hasher PasswordHasher) (*Credentials, error) {
	if users == nil {
		return nil, oops.Code("CREDENTIALS_INVALID_CONFIG").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("CREDENTIALS_INVALID_CONFIG").Errorf("password hasher is required")
	}
	return &Credentials{users: users, hasher: hasher}, nil
}

// Create hashes the user's pending password and stores the new user.
func (c *Credentials) Create(ctx context.Context, user *User) error {
	if !user.HasPendingPassword() {
		return oops.Code("CREDENTIALS_NO_PASSWORD").Errorf("new user has no password")
	}
	if err := c.hashPending(user); err != nil {
		return err
	}
	if err := c.users.Create(ctx, user); err != nil {
		return oops.Code("CREDENTIALS_CREATE_FAILED").
			With("operation", "Create").
			With("email", user.Email).
			Wrap(err)
	}
	return nil
}

// Save persists changes to an existing user, hashing a pending password first.
func (c *Credentials) Save(ctx context.Context, user *User) error {
	if user.HasPendingPassword() {
		if err := c.hashPending(user); err != nil {
			return err
		}
	}
	if err := c.users.Update(ctx, user); err != nil {
		return oops.Code("CREDENTIALS_SAVE_FAILED").
			With("operation", "Update").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	return nil
}

// Get loads a user by ID.
func (c *Credentials) Get(ctx context.Context, id ulid.ULID) (*User, error) {
	user, err := c.users.GetByID(ctx, id)
	if err != nil {
		return nil, oops.Code("CREDENTIALS_GET_FAILED").
			With("user_id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// FindByEmail loads a user by email address.
func (c *Credentials) FindByEmail(ctx context.Context, email string) (*User, error) {
	user, err := c.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, oops.Code("CREDENTIALS_GET_FAILED").
			With("email", email).
			Wrap(err)
	}
	return user, nil
}

// Verify checks password against the user's stored hash.
func (c *Credentials) Verify(user *User, password string) (bool, error) {
	ok, err := c.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return false, oops.Code("CREDENTIALS_VERIFY_FAILED").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	return ok, nil
}

// NeedsUpgrade reports whether the user's hash should be recomputed.
func (c *Credentials) NeedsUpgrade(user *User) bool {
	return c.hasher.NeedsUpgrade(user.PasswordHash)
}

func (c *Credentials) hashPending(user *User) error {
	hash, err := c.hasher.Hash(user.pendingPassword)
	if err != nil {
		return oops.Code("CREDENTIALS_HASH_FAILED").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	user.PasswordHash = hash
	user.pendingPassword = ""
	return nil
}
