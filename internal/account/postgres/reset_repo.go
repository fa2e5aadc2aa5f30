// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/accountd/accountd/internal/account"
)

// ResetTokenRepository implements account.ResetTokenRepository using PostgreSQL.
// password_resets is keyed by user_id, so each user has at most one row.
type ResetTokenRepository struct {
	pool poolIface
}

// NewResetTokenRepository creates a new ResetTokenRepository.
func NewResetTokenRepository(pool poolIface) *ResetTokenRepository {
	return &ResetTokenRepository{pool: pool}
}

// Replace upserts the user's reset token.
func (r *ResetTokenRepository) Replace(ctx context.Context, token *account.ResetToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO password_resets (user_id, token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET token_hash = EXCLUDED.token_hash,
		    created_at = EXCLUDED.created_at,
		    expires_at = EXCLUDED.expires_at
	`, token.UserID.String(), token.TokenHash, token.CreatedAt, token.ExpiresAt)
	if err != nil {
		return oops.Code("RESET_REPLACE_FAILED").
			With("operation", "upsert password_reset").
			With("user_id", token.UserID.String()).
			Wrap(err)
	}
	return nil
}

// Consume deletes the live row matching tokenHash and returns its owner.
// The single DELETE ... RETURNING lets only one concurrent caller win.
func (r *ResetTokenRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (ulid.ULID, error) {
	var userIDStr string
	err := r.pool.QueryRow(ctx, `
		DELETE FROM password_resets
		WHERE token_hash = $1 AND expires_at > $2
		RETURNING user_id
	`, tokenHash, now).Scan(&userIDStr)
	if errors.Is(err, pgx.ErrNoRows) {
		return ulid.ULID{}, oops.Code("RESET_NOT_FOUND").Wrap(account.ErrNotFound)
	}
	if err != nil {
		return ulid.ULID{}, oops.Code("RESET_CONSUME_FAILED").
			With("operation", "delete password_reset by hash").
			Wrap(err)
	}

	userID, err := ulid.Parse(userIDStr)
	if err != nil {
		return ulid.ULID{}, oops.Code("RESET_INVALID_USER_ID").
			With("operation", "parse user id").
			With("user_id", userIDStr).
			Wrap(err)
	}
	return userID, nil
}

// DeleteExpired removes tokens that expired at or before now and returns the count.
func (r *ResetTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM password_resets WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, oops.Code("RESET_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired password_resets").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Compile-time interface check.
var _ account.ResetTokenRepository = (*ResetTokenRepository)(nil)
