package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cartbase/authcore/pkg/auth"
)

func (s *Storage) CreateStore(ctx context.Context, store *auth.Store) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO stores (id, owner_id, name, slug, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		store.ID, store.OwnerID, store.Name, store.Slug, store.CreatedAt)
	if err != nil {
		if conflict := constraintConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("insert store: %w", err)
	}
	return nil
}

func (s *Storage) GetStoreByOwner(ctx context.Context, ownerID uuid.UUID) (*auth.Store, error) {
	var st auth.Store
	err := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, name, slug, created_at
		FROM stores WHERE owner_id = $1`, ownerID,
	).Scan(&st.ID, &st.OwnerID, &st.Name, &st.Slug, &st.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrStoreNotFound
		}
		return nil, fmt.Errorf("get store: %w", err)
	}
	return &st, nil
}
