// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package account

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Reset token configuration.
const (
	ResetTokenBytes   = 32               // 32 bytes = 64 hex chars
	DefaultResetTTL   = 30 * time.Minute // validity stated in the reset email
	resetTokenHashLen = sha256.Size * 2
)

// ResetToken is the stored form of a password reset request. Only the
// SHA-256 of the plaintext token is kept.
type ResetToken struct {
	UserID    ulid.ULID
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewResetToken creates a validated ResetToken.
func NewResetToken(userID ulid.ULID, tokenHash string, createdAt, expiresAt time.Time) (*ResetToken, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("RESET_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if len(tokenHash) != resetTokenHashLen {
		return nil, oops.Code("RESET_INVALID_HASH").
			With("length", len(tokenHash)).
			Errorf("token hash must be %d hex characters", resetTokenHashLen)
	}
	if !expiresAt.After(createdAt) {
		return nil, oops.Code("RESET_INVALID_EXPIRY").Errorf("expiry must be after creation")
	}
	return &ResetToken{
		UserID:    userID,
		TokenHash: tokenHash,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}, nil
}

// IsExpiredAt returns true if the token is no longer valid at t.
func (r *ResetToken) IsExpiredAt(t time.Time) bool {
	return !t.Before(r.ExpiresAt)
}

// HashResetToken computes the SHA-256 hex digest of a plaintext reset token.
func HashResetToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// ResetTokenRepository manages reset token persistence.
type ResetTokenRepository interface {
	// Replace atomically stores token as the only reset token for its user,
	// discarding any previous one.
	Replace(ctx context.Context, token *ResetToken) error

	// Consume atomically deletes the token with the given hash if it expires
	// after now, returning its owner. Returns ErrNotFound if nothing matched.
	Consume(ctx context.Context, tokenHash string, now time.Time) (ulid.ULID, error)

	// DeleteExpired removes tokens that expired at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ResetTokens issues and redeems single-use password reset tokens.
type ResetTokens struct {
	repo ResetTokenRepository
	ttl  time.Duration
	now  func() time.Time
}

// NewResetTokens creates a ResetTokens manager. A non-positive ttl uses DefaultResetTTL.
func NewResetTokens(repo ResetTokenRepository, ttl time.Duration) (*ResetTokens, error) {
	if repo == nil {
		return nil, oops.Code("RESET_INVALID_CONFIG").Errorf("reset token repository is required")
	}
	if ttl <= 0 {
		ttl = DefaultResetTTL
	}
	return &ResetTokens{repo: repo, ttl: ttl, now: time.Now}, nil
}

// TTL returns how long issued tokens stay valid.
func (m *ResetTokens) TTL() time.Duration {
	return m.ttl
}

// Issue creates a new reset token for userID, invalidating any previous one.
// The returned plaintext is the random secret followed by the user ID and is
// never stored.
func (m *ResetTokens) Issue(ctx context.Context, userID ulid.ULID) (string, error) {
	secret := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", oops.Code("RESET_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", ResetTokenBytes).
			Wrap(err)
	}
	plaintext := hex.EncodeToString(secret) + userID.String()

	now := m.now().UTC()
	token, err := NewResetToken(userID, HashResetToken(plaintext), now, now.Add(m.ttl))
	if err != nil {
		return "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "NewResetToken").
			Wrap(err)
	}

	if err := m.repo.Replace(ctx, token); err != nil {
		return "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "Replace").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return plaintext, nil
}

// Consume redeems a plaintext reset token and returns its owner. The token is
// deleted on success. Unknown, already used and expired tokens all fail with
// ErrInvalidOrExpiredToken.
func (m *ResetTokens) Consume(ctx context.Context, plaintext string) (ulid.ULID, error) {
	if plaintext == "" {
		return ulid.ULID{}, oops.Code("RESET_TOKEN_INVALID").Wrapf(ErrInvalidOrExpiredToken, "reset token cannot be empty")
	}

	userID, err := m.repo.Consume(ctx, HashResetToken(plaintext), m.now().UTC())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ulid.ULID{}, oops.Code("RESET_TOKEN_INVALID").Wrap(ErrInvalidOrExpiredToken)
		}
		return ulid.ULID{}, oops.Code("RESET_CONSUME_FAILED").
			With("operation", "Consume").
			Wrap(err)
	}
	return userID, nil
}

// PurgeExpired deletes every token that has expired.
func (m *ResetTokens) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := m.repo.DeleteExpired(ctx, m.now().UTC())
	if err != nil {
		return 0, oops.Code("RESET_PURGE_FAILED").
			With("operation", "DeleteExpired").
			Wrap(err)
	}
	return n, nil
}
