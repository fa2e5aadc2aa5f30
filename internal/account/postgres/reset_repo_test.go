// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accountd/accountd/internal/account"
	"github.com/accountd/accountd/pkg/errutil"
)

func TestResetTokenRepository_Replace(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok, err := account.NewResetToken(ulid.Make(), account.HashResetToken("plain"), now, now.Add(30*time.Minute))
	require.NoError(t, err)

	t.Run("upserts on user_id", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`INSERT INTO password_resets .+ ON CONFLICT \(user_id\) DO UPDATE`).
			WithArgs(tok.UserID.String(), tok.TokenHash, tok.CreatedAt, tok.ExpiresAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, NewResetTokenRepository(mock).Replace(ctx, tok))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("propagates errors", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`INSERT INTO password_resets`).
			WithArgs(tok.UserID.String(), tok.TokenHash, tok.CreatedAt, tok.ExpiresAt).
			WillReturnError(errors.New("foreign key violation"))

		err = NewResetTokenRepository(mock).Replace(ctx, tok)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "RESET_REPLACE_FAILED")
		errutil.AssertErrorContext(t, err, "user_id", tok.UserID.String())
	})
}

func TestResetTokenRepository_Consume(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	hash := account.HashResetToken("plain")

	t.Run("deletes and returns owner", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		owner := ulid.Make()
		mock.ExpectQuery(`DELETE FROM password_resets\s+WHERE token_hash = \$1 AND expires_at > \$2\s+RETURNING user_id`).
			WithArgs(hash, now).
			WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(owner.String()))

		got, err := NewResetTokenRepository(mock).Consume(ctx, hash, now)
		require.NoError(t, err)
		assert.Equal(t, owner, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no live row", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`DELETE FROM password_resets`).
			WithArgs(hash, now).
			WillReturnRows(pgxmock.NewRows([]string{"user_id"}))

		_, err = NewResetTokenRepository(mock).Consume(ctx, hash, now)
		assert.ErrorIs(t, err, account.ErrNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`DELETE FROM password_resets`).
			WithArgs(hash, now).
			WillReturnError(errors.New("connection lost"))

		_, err = NewResetTokenRepository(mock).Consume(ctx, hash, now)
		require.Error(t, err)
		assert.NotErrorIs(t, err, account.ErrNotFound)
		errutil.AssertErrorCode(t, err, "RESET_CONSUME_FAILED")
	})
}

func TestResetTokenRepository_DeleteExpired(t *testing.T) {
	now := time.Now()

	t.Run("returns count", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`DELETE FROM password_resets WHERE expires_at <= \$1`).
			WithArgs(now).
			WillReturnResult(pgxmock.NewResult("DELETE", 3))

		n, err := NewResetTokenRepository(mock).DeleteExpired(context.Background(), now)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("propagates errors", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`DELETE FROM password_resets`).
			WithArgs(now).
			WillReturnError(errors.New("timeout"))

		_, err = NewResetTokenRepository(mock).DeleteExpired(context.Background(), now)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "RESET_DELETE_EXPIRED_FAILED")
	})
}
