// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

// Package postgres provides PostgreSQL implementations of account repositories.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// poolIface is the part of *pgxpool.Pool the repositories use. pgxmock
// pools satisfy it in unit tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == pgerrcode.UniqueViolation
}

func isCheckViolation(err error) bool {
	return pgErrorCode(err) == pgerrcode.CheckViolation
}
