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

const userColumns = `id, name, email, password_hash, photo, phone, bio, created_at, updated_at`

// UserRepository implements account.UserRepository using PostgreSQL.
type UserRepository struct {
	pool poolIface
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *account.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		user.ID.String(),
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Photo,
		user.Phone,
		user.Bio,
		user.CreatedAt,
		user.UpdatedAt,
	)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return oops.Code("USER_DUPLICATE_EMAIL").
			With("email", user.Email).
			Wrap(account.ErrDuplicateEmail)
	case isCheckViolation(err):
		return oops.Code("USER_CONSTRAINT_FAILED").
			With("operation", "insert user").
			Wrapf(account.ErrValidation, "%v", err)
	default:
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("email", user.Email).
			Wrap(err)
	}
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*account.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "get user by id").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email (case-insensitive).
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*account.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("email", email).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").
			With("operation", "get user by email").
			With("email", email).
			Wrap(err)
	}
	return user, nil
}

// Update replaces the stored fields of an existing user.
func (r *UserRepository) Update(ctx context.Context, user *account.User) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users
		SET name = $2, email = $3, password_hash = $4, photo = $5, phone = $6, bio = $7, updated_at = $8
		WHERE id = $1
	`,
		user.ID.String(),
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Photo,
		user.Phone,
		user.Bio,
		user.UpdatedAt,
	)
	if err != nil {
		if isCheckViolation(err) {
			return oops.Code("USER_CONSTRAINT_FAILED").
				With("operation", "update user").
				Wrapf(account.ErrValidation, "%v", err)
		}
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update user").
			With("id", user.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", user.ID.String()).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*account.User, error) {
	var (
		idStr     string
		user      account.User
		createdAt time.Time
		updatedAt time.Time
	)
	err := row.Scan(&idStr, &user.Name, &user.Email, &user.PasswordHash,
		&user.Photo, &user.Phone, &user.Bio, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context
		}
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "scan user").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("operation", "parse user id").
			With("id", idStr).
			Wrap(err)
	}
	user.ID = id
	user.CreatedAt = createdAt
	user.UpdatedAt = updatedAt
	return &user, nil
}

// Compile-time interface check.
var _ account.UserRepository = (*UserRepository)(nil)
