package database

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the query surface shared by *pgxpool.Pool, pgx.Tx and the pgxmock
// pool, so repositories can run against any of them.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Pinger is implemented by connection pools that can verify liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a PostgreSQL unique_violation and
// returns the name of the violated constraint when the driver exposes it.
func IsUniqueViolation(err error) (constraint string, ok bool) {
	if err == nil {
		return "", false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName, pgErr.Code == uniqueViolation
	}
	// Errors passed through other layers may only keep the SQLSTATE text.
	return "", strings.Contains(err.Error(), "SQLSTATE "+uniqueViolation)
}

// Ping runs a trivial round-trip query.
func Ping(ctx context.Context, db DBTX) error {
	var one int
	return db.QueryRow(ctx, "SELECT 1").Scan(&one)
}
