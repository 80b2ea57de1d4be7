package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cartbase/authcore/pkg/auth"
)

func (s *Storage) StoreState(ctx context.Context, state string, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO oauth_states (state, expires_at, created_at)
		VALUES ($1, $2, now())`, state, expiresAt)
	if err != nil {
		return fmt.Errorf("insert oauth state: %w", err)
	}
	return nil
}

// ConsumeState deletes the row and inspects the returned expiry, so a
// second consume and an expired state look the same to the caller.
func (s *Storage) ConsumeState(ctx context.Context, state string) error {
	var expiresAt time.Time
	err := s.pool.QueryRow(ctx, `
		DELETE FROM oauth_states WHERE state = $1
		RETURNING expires_at`, state,
	).Scan(&expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.ErrStateNotFound
		}
		return fmt.Errorf("consume oauth state: %w", err)
	}
	if time.Now().After(expiresAt) {
		return auth.ErrStateNotFound
	}
	return nil
}
