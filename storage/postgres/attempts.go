package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cartbase/authcore/pkg/auth"
)

func (s *Storage) RecordLoginAttempt(ctx context.Context, attempt *auth.LoginAttempt) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO login_attempts (
			id, user_id, email, ip_address, user_agent, success, reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		attempt.ID, attempt.UserID, attempt.Email, attempt.IPAddress,
		attempt.UserAgent, attempt.Success, attempt.Reason, attempt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert login attempt: %w", err)
	}
	return nil
}

func (s *Storage) ListRecentFailures(ctx context.Context, email, ip string, since time.Time) ([]auth.LoginAttempt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, email, ip_address, user_agent, success, reason, created_at
		FROM login_attempts
		WHERE NOT success
		  AND created_at > $3
		  AND (lower(email) = lower($1) OR ip_address = $2)`,
		email, ip, since)
	if err != nil {
		return nil, fmt.Errorf("list recent failures: %w", err)
	}
	defer rows.Close()

	var out []auth.LoginAttempt
	for rows.Next() {
		var a auth.LoginAttempt
		if err := rows.Scan(&a.ID, &a.UserID, &a.Email, &a.IPAddress,
			&a.UserAgent, &a.Success, &a.Reason, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan login attempt: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate login attempts: %w", err)
	}
	return out, nil
}
