package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cartbase/authcore/pkg/token"
)

// Default single-use token lifetimes. Policy constants, overridable per
// service via options.
const (
	DefaultVerificationTTL  = 24 * time.Hour
	DefaultPasswordResetTTL = time.Hour
	DefaultMagicLinkTTL     = 15 * time.Minute
)

// singleUseTokens implements the lifecycle shared by email verification,
// password reset, and magic link tokens: issue (superseding any prior
// unused token for the same user and purpose), then redeem exactly once.
type singleUseTokens struct {
	storage TokenStorage
	purpose TokenPurpose
	ttl     time.Duration
}

// issue invalidates outstanding tokens of the same purpose for the user and
// persists a fresh one. Returns the plaintext for transmission; only the
// lookup hash is stored.
func (t *singleUseTokens) issue(ctx context.Context, userID uuid.UUID, email, ip, userAgent string) (string, *SingleUseToken, error) {
	if err := t.storage.InvalidateUserTokens(ctx, userID, t.purpose); err != nil {
		return "", nil, fmt.Errorf("failed to invalidate prior tokens: %w", err)
	}

	tok, err := token.Issue()
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	now := time.Now()
	record := &SingleUseToken{
		ID:        uuid.New(),
		UserID:    userID,
		Purpose:   t.purpose,
		TokenHash: tok.LookupHash,
		Email:     email,
		ExpiresAt: now.Add(t.ttl),
		IPAddress: ip,
		UserAgent: userAgent,
		CreatedAt: now,
	}
	if err := t.storage.CreateToken(ctx, record); err != nil {
		return "", nil, fmt.Errorf("failed to store token: %w", err)
	}

	return tok.Plaintext, record, nil
}

// redeem resolves a presented plaintext and consumes it. The used check
// precedes the expiry check, and the consume write is a compare-and-set, so
// two concurrent redemptions of one token cannot both succeed.
func (t *singleUseTokens) redeem(ctx context.Context, plaintext string) (*SingleUseToken, error) {
	record, err := t.storage.GetTokenByHash(ctx, t.purpose, token.Hash(plaintext))
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	if record.Used {
		return nil, ErrTokenAlreadyUsed
	}
	if time.Now().After(record.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	usedAt := time.Now()
	if err := t.storage.ConsumeToken(ctx, record.ID, usedAt); err != nil {
		if errors.Is(err, ErrTokenAlreadyUsed) {
			return nil, ErrTokenAlreadyUsed
		}
		return nil, fmt.Errorf("failed to consume token: %w", err)
	}

	record.Used = true
	record.UsedAt = &usedAt
	return record, nil
}
