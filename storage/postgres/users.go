package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cartbase/authcore/pkg/auth"
)

const userColumns = `id, email, password_hash, first_name, last_name, phone, role,
	email_verified, is_active, is_suspended, two_factor_enabled,
	coalesce(two_factor_secret, ''), auth_provider, coalesce(google_id, ''),
	last_login_at, coalesce(last_login_ip, ''), created_at, updated_at`

func scanUser(row pgx.Row) (*auth.User, error) {
	var u auth.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone, &u.Role,
		&u.EmailVerified, &u.IsActive, &u.IsSuspended, &u.TwoFactorEnabled,
		&u.TwoFactorSecret, &u.AuthProvider, &u.GoogleID,
		&u.LastLoginAt, &u.LastLoginIP, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// nullable turns the empty string into SQL NULL so unique indexes on
// optional columns only apply to present values.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *Storage) CreateUser(ctx context.Context, user *auth.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (
			id, email, password_hash, first_name, last_name, phone, role,
			email_verified, is_active, is_suspended, two_factor_enabled,
			two_factor_secret, auth_provider, google_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.Phone, user.Role, user.EmailVerified, user.IsActive, user.IsSuspended,
		user.TwoFactorEnabled, nullable(user.TwoFactorSecret), user.AuthProvider,
		nullable(user.GoogleID), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if conflict := constraintConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Storage) GetUserByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

func (s *Storage) GetUserByGoogleID(ctx context.Context, googleID string) (*auth.User, error) {
	if googleID == "" {
		return nil, auth.ErrUserNotFound
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID)
	return scanUser(row)
}

func (s *Storage) UpdateUserVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	return s.updateUser(ctx,
		`UPDATE users SET email_verified = $2, updated_at = now() WHERE id = $1`,
		id, verified)
}

func (s *Storage) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return s.updateUser(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`,
		id, hash)
}

func (s *Storage) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time, ip string) error {
	return s.updateUser(ctx,
		`UPDATE users SET last_login_at = $2, last_login_ip = $3, updated_at = now() WHERE id = $1`,
		id, at, ip)
}

func (s *Storage) UpdateTwoFactor(ctx context.Context, id uuid.UUID, enabled bool, secret string) error {
	return s.updateUser(ctx,
		`UPDATE users SET two_factor_enabled = $2, two_factor_secret = $3, updated_at = now() WHERE id = $1`,
		id, enabled, nullable(secret))
}

func (s *Storage) LinkGoogleID(ctx context.Context, id uuid.UUID, googleID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET google_id = $2, updated_at = now() WHERE id = $1`,
		id, googleID)
	if err != nil {
		if conflict := constraintConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("link google id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (s *Storage) UnlinkGoogleID(ctx context.Context, id uuid.UUID) error {
	return s.updateUser(ctx,
		`UPDATE users SET google_id = NULL, updated_at = now() WHERE id = $1`, id)
}

func (s *Storage) updateUser(ctx context.Context, sql string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}
