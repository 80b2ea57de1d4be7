// Package postgres implements the auth storage interfaces on PostgreSQL
// via pgx. Uniqueness of emails, provider IDs, token hashes, and store
// slugs is enforced by database constraints; constraint violations are
// mapped to the same domain conflicts as the services' pre-checks, so
// concurrent writers always observe consistent errors.
package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartbase/authcore/pkg/auth"
)

// Storage is a PostgreSQL-backed auth.Storage.
type Storage struct {
	pool *pgxpool.Pool
}

// New creates a storage over an established connection pool.
func New(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

// constraintConflict maps a unique-violation on a named constraint to a
// domain error, or returns nil when err is not that kind of violation.
func constraintConflict(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	switch pgErr.ConstraintName {
	case "users_email_key", "users_email_lower_idx":
		return auth.ErrEmailAlreadyExists
	case "users_google_id_key":
		return auth.ErrProviderLinked
	}
	return nil
}

var _ auth.Storage = (*Storage)(nil)
