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

const sessionColumns = `id, user_id, token_hash, fingerprint, ip_address,
	device_type, browser, os, is_active, expires_at, last_active_at, created_at`

func scanSession(row pgx.Row) (*auth.Session, error) {
	var sess auth.Session
	err := row.Scan(
		&sess.ID, &sess.UserID, &sess.TokenHash, &sess.Fingerprint, &sess.IPAddress,
		&sess.DeviceType, &sess.Browser, &sess.OS, &sess.IsActive,
		&sess.ExpiresAt, &sess.LastActiveAt, &sess.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrSessionNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &sess, nil
}

func (s *Storage) CreateSession(ctx context.Context, session *auth.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (
			id, user_id, token_hash, fingerprint, ip_address,
			device_type, browser, os, is_active, expires_at, last_active_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		session.ID, session.UserID, session.TokenHash, session.Fingerprint,
		session.IPAddress, session.DeviceType, session.Browser, session.OS,
		session.IsActive, session.ExpiresAt, session.LastActiveAt, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *Storage) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE token_hash = $1`, tokenHash)
	return scanSession(row)
}

func (s *Storage) ListRecentSessions(ctx context.Context, userID uuid.UUID, since time.Time, limit int) ([]auth.Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = $1 AND created_at > $2
		 ORDER BY created_at DESC
		 LIMIT $3`, userID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent sessions: %w", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

func (s *Storage) ListActiveSessions(ctx context.Context, userID uuid.UUID) ([]auth.Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = $1 AND is_active AND expires_at > now()
		 ORDER BY last_active_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

func collectSessions(rows pgx.Rows) ([]auth.Session, error) {
	var out []auth.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

func (s *Storage) TouchSession(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET last_active_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrSessionNotFound
	}
	return nil
}

func (s *Storage) DeactivateSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET is_active = false WHERE id = $1 AND user_id = $2`,
		sessionID, userID)
	if err != nil {
		return fmt.Errorf("deactivate session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrSessionNotFound
	}
	return nil
}

func (s *Storage) DeactivateAllSessions(ctx context.Context, userID uuid.UUID, except *uuid.UUID) error {
	var err error
	if except != nil {
		_, err = s.pool.Exec(ctx,
			`UPDATE sessions SET is_active = false WHERE user_id = $1 AND id <> $2`,
			userID, *except)
	} else {
		_, err = s.pool.Exec(ctx,
			`UPDATE sessions SET is_active = false WHERE user_id = $1`, userID)
	}
	if err != nil {
		return fmt.Errorf("deactivate sessions: %w", err)
	}
	return nil
}
