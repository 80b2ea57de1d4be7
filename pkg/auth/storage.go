package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStorage defines the user persistence operations shared by the
// authentication services. Implementations must enforce uniqueness on email
// and google ID and map their constraint violations to ErrEmailAlreadyExists
// and ErrProviderLinked so concurrent writes surface the same conflict as
// the pre-checks.
type UserStorage interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*User, error)

	UpdateUserVerified(ctx context.Context, id uuid.UUID, verified bool) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time, ip string) error
	// UpdateTwoFactor persists the enabled flag and secret together so the
	// pending-confirmation state (secret set, flag off) is a single write.
	UpdateTwoFactor(ctx context.Context, id uuid.UUID, enabled bool, secret string) error
	LinkGoogleID(ctx context.Context, id uuid.UUID, googleID string) error
	UnlinkGoogleID(ctx context.Context, id uuid.UUID) error
}

// SessionStorage defines session persistence. Lookups are by token hash,
// never by plaintext.
type SessionStorage interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	// ListRecentSessions returns the user's newest sessions created after
	// since, active or not, capped at limit. Used for anomaly comparison.
	ListRecentSessions(ctx context.Context, userID uuid.UUID, since time.Time, limit int) ([]Session, error)
	// ListActiveSessions returns active, unexpired sessions ordered by
	// last activity descending.
	ListActiveSessions(ctx context.Context, userID uuid.UUID) ([]Session, error)
	TouchSession(ctx context.Context, id uuid.UUID, at time.Time) error
	// DeactivateSession is ownership-scoped: it returns ErrSessionNotFound
	// when the session does not belong to userID.
	DeactivateSession(ctx context.Context, userID, sessionID uuid.UUID) error
	DeactivateAllSessions(ctx context.Context, userID uuid.UUID, except *uuid.UUID) error
}

// AttemptStorage is the append-only login attempt ledger.
type AttemptStorage interface {
	RecordLoginAttempt(ctx context.Context, attempt *LoginAttempt) error
	// ListRecentFailures returns failed attempts since the given time where
	// the email or the IP matches.
	ListRecentFailures(ctx context.Context, email, ip string, since time.Time) ([]LoginAttempt, error)
}

// TokenStorage persists single-use tokens for every purpose.
type TokenStorage interface {
	CreateToken(ctx context.Context, token *SingleUseToken) error
	GetTokenByHash(ctx context.Context, purpose TokenPurpose, tokenHash string) (*SingleUseToken, error)
	// ConsumeToken flips used=false to used=true as a compare-and-set.
	// A concurrent redemption loses the race and gets ErrTokenAlreadyUsed.
	ConsumeToken(ctx context.Context, id uuid.UUID, usedAt time.Time) error
	// InvalidateUserTokens marks every unused token of the purpose as used,
	// so re-requests never leave multiple valid tokens outstanding.
	InvalidateUserTokens(ctx context.Context, userID uuid.UUID, purpose TokenPurpose) error
}

// BackupCodeStorage persists hashed 2FA recovery codes as a per-user set.
type BackupCodeStorage interface {
	// ReplaceBackupCodes swaps the user's whole code set atomically.
	ReplaceBackupCodes(ctx context.Context, userID uuid.UUID, hashes []string) error
	ListBackupCodes(ctx context.Context, userID uuid.UUID) ([]BackupCode, error)
	// DeleteBackupCode removes exactly one code; ErrBackupCodeNotFound when
	// it was already consumed by a concurrent request.
	DeleteBackupCode(ctx context.Context, userID, codeID uuid.UUID) error
	DeleteAllBackupCodes(ctx context.Context, userID uuid.UUID) error
}

// StoreStorage persists seller storefront records.
type StoreStorage interface {
	CreateStore(ctx context.Context, store *Store) error
	GetStoreByOwner(ctx context.Context, ownerID uuid.UUID) (*Store, error)
}

// OAuthStateStorage holds short-lived CSRF state tokens for the OAuth flow.
type OAuthStateStorage interface {
	StoreState(ctx context.Context, state string, expiresAt time.Time) error
	// ConsumeState atomically checks and removes a state token, returning
	// ErrStateNotFound if absent, expired, or already consumed.
	ConsumeState(ctx context.Context, state string) error
}

// Storage aggregates every persistence concern for wiring convenience.
// Services depend only on the narrow interfaces above.
type Storage interface {
	UserStorage
	SessionStorage
	AttemptStorage
	TokenStorage
	BackupCodeStorage
	StoreStorage
	OAuthStateStorage
}
