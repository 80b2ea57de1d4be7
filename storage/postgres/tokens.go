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

func (s *Storage) CreateToken(ctx context.Context, token *auth.SingleUseToken) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO single_use_tokens (
			id, user_id, purpose, token_hash, email, expires_at,
			used, used_at, ip_address, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		token.ID, token.UserID, token.Purpose, token.TokenHash, token.Email,
		token.ExpiresAt, token.Used, token.UsedAt, nullable(token.IPAddress),
		nullable(token.UserAgent), token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

func (s *Storage) GetTokenByHash(ctx context.Context, purpose auth.TokenPurpose, tokenHash string) (*auth.SingleUseToken, error) {
	var t auth.SingleUseToken
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, purpose, token_hash, email, expires_at,
		       used, used_at, coalesce(ip_address, ''), coalesce(user_agent, ''), created_at
		FROM single_use_tokens
		WHERE purpose = $1 AND token_hash = $2`,
		purpose, tokenHash,
	).Scan(&t.ID, &t.UserID, &t.Purpose, &t.TokenHash, &t.Email, &t.ExpiresAt,
		&t.Used, &t.UsedAt, &t.IPAddress, &t.UserAgent, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrTokenNotFound
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	return &t, nil
}

// ConsumeToken performs the unused-to-used transition as a conditional
// update. Exactly one of any set of concurrent redeemers sees a row
// affected; the rest observe ErrTokenAlreadyUsed.
func (s *Storage) ConsumeToken(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE single_use_tokens SET used = true, used_at = $2
		WHERE id = $1 AND NOT used`, id, usedAt)
	if err != nil {
		return fmt.Errorf("consume token: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM single_use_tokens WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("consume token: %w", err)
	}
	if !exists {
		return auth.ErrTokenNotFound
	}
	return auth.ErrTokenAlreadyUsed
}

func (s *Storage) InvalidateUserTokens(ctx context.Context, userID uuid.UUID, purpose auth.TokenPurpose) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE single_use_tokens SET used = true, used_at = now()
		WHERE user_id = $1 AND purpose = $2 AND NOT used`,
		userID, purpose)
	if err != nil {
		return fmt.Errorf("invalidate tokens: %w", err)
	}
	return nil
}
