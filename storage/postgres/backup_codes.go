package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cartbase/authcore/pkg/auth"
)

// ReplaceBackupCodes swaps the user's recovery set atomically so a
// crash between delete and insert cannot leave a partial set behind.
func (s *Storage) ReplaceBackupCodes(ctx context.Context, userID uuid.UUID, hashes []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace backup codes: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM backup_codes WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear backup codes: %w", err)
	}
	now := time.Now()
	for _, hash := range hashes {
		_, err := tx.Exec(ctx, `
			INSERT INTO backup_codes (id, user_id, code_hash, created_at)
			VALUES ($1, $2, $3, $4)`,
			uuid.New(), userID, hash, now)
		if err != nil {
			return fmt.Errorf("insert backup code: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace backup codes: %w", err)
	}
	return nil
}

func (s *Storage) ListBackupCodes(ctx context.Context, userID uuid.UUID) ([]auth.BackupCode, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, code_hash, created_at
		FROM backup_codes WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list backup codes: %w", err)
	}
	defer rows.Close()

	codes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (auth.BackupCode, error) {
		var c auth.BackupCode
		err := row.Scan(&c.ID, &c.UserID, &c.CodeHash, &c.CreatedAt)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan backup codes: %w", err)
	}
	return codes, nil
}

// DeleteBackupCode consumes a single code. The user scope in the WHERE
// clause keeps one user from burning another's code by ID.
func (s *Storage) DeleteBackupCode(ctx context.Context, userID, codeID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM backup_codes WHERE id = $1 AND user_id = $2`, codeID, userID)
	if err != nil {
		return fmt.Errorf("delete backup code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrBackupCodeNotFound
	}
	return nil
}

func (s *Storage) DeleteAllBackupCodes(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM backup_codes WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete backup codes: %w", err)
	}
	return nil
}
