// Package memory provides a mutex-guarded in-memory implementation of the
// auth storage interfaces, used in tests and local development. It mirrors
// the relational store's semantics: unique constraints on email and
// provider ID, ownership-scoped session revocation, and compare-and-set
// single-use token consumption.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cartbase/authcore/pkg/auth"
)

// Storage is an in-memory auth.Storage. Safe for concurrent use.
type Storage struct {
	mu sync.RWMutex

	users       map[uuid.UUID]*auth.User
	sessions    map[uuid.UUID]*auth.Session
	attempts    []auth.LoginAttempt
	tokens      map[uuid.UUID]*auth.SingleUseToken
	backupCodes map[uuid.UUID]*auth.BackupCode
	stores      map[uuid.UUID]*auth.Store
	states      map[string]time.Time
}

// New creates an empty in-memory storage.
func New() *Storage {
	return &Storage{
		users:       make(map[uuid.UUID]*auth.User),
		sessions:    make(map[uuid.UUID]*auth.Session),
		tokens:      make(map[uuid.UUID]*auth.SingleUseToken),
		backupCodes: make(map[uuid.UUID]*auth.BackupCode),
		stores:      make(map[uuid.UUID]*auth.Store),
		states:      make(map[string]time.Time),
	}
}

// --- users ---

func (s *Storage) CreateUser(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return auth.ErrEmailAlreadyExists
		}
		if user.GoogleID != "" && u.GoogleID == user.GoogleID {
			return auth.ErrProviderLinked
		}
	}

	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *Storage) GetUserByID(_ context.Context, id uuid.UUID) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Storage) GetUserByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (s *Storage) GetUserByGoogleID(_ context.Context, googleID string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if googleID == "" {
		return nil, auth.ErrUserNotFound
	}
	for _, u := range s.users {
		if u.GoogleID == googleID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (s *Storage) UpdateUserVerified(_ context.Context, id uuid.UUID, verified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return auth.ErrUserNotFound
	}
	u.EmailVerified = verified
	u.UpdatedAt = time.Now()
	return nil
}

func (s *Storage) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return auth.ErrUserNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now()
	return nil
}

func (s *Storage) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return auth.ErrUserNotFound
	}
	u.LastLoginAt = &at
	u.LastLoginIP = ip
	u.UpdatedAt = time.Now()
	return nil
}

func (s *Storage) UpdateTwoFactor(_ context.Context, id uuid.UUID, enabled bool, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return auth.ErrUserNotFound
	}
	u.TwoFactorEnabled = enabled
	u.TwoFactorSecret = secret
	u.UpdatedAt = time.Now()
	return nil
}

// SetUserStatus flips the active and suspended flags directly. Account
// moderation lives outside the auth services, so only the dev store
// exposes it.
func (s *Storage) SetUserStatus(_ context.Context, id uuid.UUID, active, suspended bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return auth.ErrUserNotFound
	}
	u.IsActive = active
	u.IsSuspended = suspended
	u.UpdatedAt = time.Now()
	return nil
}

func (s *Storage) LinkGoogleID(_ context.Context, id uuid.UUID, googleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.GoogleID == googleID && u.ID != id {
			return auth.ErrProviderLinked
		}
	}
	u, ok := s.users[id]
	if !ok {
		return auth.ErrUserNotFound
	}
	u.GoogleID = googleID
	u.UpdatedAt = time.Now()
	return nil
}

func (s *Storage) UnlinkGoogleID(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return auth.ErrUserNotFound
	}
	u.GoogleID = ""
	u.UpdatedAt = time.Now()
	return nil
}

// --- sessions ---

func (s *Storage) CreateSession(_ context.Context, session *auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *Storage) GetSessionByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.sessions {
		if sess.TokenHash == tokenHash {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, auth.ErrSessionNotFound
}

func (s *Storage) ListRecentSessions(_ context.Context, userID uuid.UUID, since time.Time, limit int) ([]auth.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []auth.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.CreatedAt.After(since) {
			out = append(out, *sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Storage) ListActiveSessions(_ context.Context, userID uuid.UUID) ([]auth.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	var out []auth.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.Usable(now) {
			out = append(out, *sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActiveAt.After(out[j].LastActiveAt) })
	return out, nil
}

func (s *Storage) TouchSession(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return auth.ErrSessionNotFound
	}
	sess.LastActiveAt = at
	return nil
}

func (s *Storage) DeactivateSession(_ context.Context, userID, sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || sess.UserID != userID {
		return auth.ErrSessionNotFound
	}
	sess.IsActive = false
	return nil
}

func (s *Storage) DeactivateAllSessions(_ context.Context, userID uuid.UUID, except *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions {
		if sess.UserID != userID {
			continue
		}
		if except != nil && sess.ID == *except {
			continue
		}
		sess.IsActive = false
	}
	return nil
}

// --- login attempts ---

func (s *Storage) RecordLoginAttempt(_ context.Context, attempt *auth.LoginAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts = append(s.attempts, *attempt)
	return nil
}

func (s *Storage) ListRecentFailures(_ context.Context, email, ip string, since time.Time) ([]auth.LoginAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []auth.LoginAttempt
	for _, a := range s.attempts {
		if a.Success || !a.CreatedAt.After(since) {
			continue
		}
		if strings.EqualFold(a.Email, email) || a.IPAddress == ip {
			out = append(out, a)
		}
	}
	return out, nil
}

// --- single-use tokens ---

func (s *Storage) CreateToken(_ context.Context, token *auth.SingleUseToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *token
	s.tokens[token.ID] = &cp
	return nil
}

func (s *Storage) GetTokenByHash(_ context.Context, purpose auth.TokenPurpose, tokenHash string) (*auth.SingleUseToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tokens {
		if t.Purpose == purpose && t.TokenHash == tokenHash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, auth.ErrTokenNotFound
}

func (s *Storage) ConsumeToken(_ context.Context, id uuid.UUID, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[id]
	if !ok {
		return auth.ErrTokenNotFound
	}
	if t.Used {
		return auth.ErrTokenAlreadyUsed
	}
	t.Used = true
	t.UsedAt = &usedAt
	return nil
}

func (s *Storage) InvalidateUserTokens(_ context.Context, userID uuid.UUID, purpose auth.TokenPurpose) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, t := range s.tokens {
		if t.UserID == userID && t.Purpose == purpose && !t.Used {
			t.Used = true
			t.UsedAt = &now
		}
	}
	return nil
}

// --- backup codes ---

func (s *Storage) ReplaceBackupCodes(_ context.Context, userID uuid.UUID, hashes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, bc := range s.backupCodes {
		if bc.UserID == userID {
			delete(s.backupCodes, id)
		}
	}
	now := time.Now()
	for _, h := range hashes {
		bc := &auth.BackupCode{
			ID:        uuid.New(),
			UserID:    userID,
			CodeHash:  h,
			CreatedAt: now,
		}
		s.backupCodes[bc.ID] = bc
	}
	return nil
}

func (s *Storage) ListBackupCodes(_ context.Context, userID uuid.UUID) ([]auth.BackupCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []auth.BackupCode
	for _, bc := range s.backupCodes {
		if bc.UserID == userID {
			out = append(out, *bc)
		}
	}
	return out, nil
}

func (s *Storage) DeleteBackupCode(_ context.Context, userID, codeID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bc, ok := s.backupCodes[codeID]
	if !ok || bc.UserID != userID {
		return auth.ErrBackupCodeNotFound
	}
	delete(s.backupCodes, codeID)
	return nil
}

func (s *Storage) DeleteAllBackupCodes(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, bc := range s.backupCodes {
		if bc.UserID == userID {
			delete(s.backupCodes, id)
		}
	}
	return nil
}

// --- seller stores ---

func (s *Storage) CreateStore(_ context.Context, store *auth.Store) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *store
	s.stores[store.ID] = &cp
	return nil
}

func (s *Storage) GetStoreByOwner(_ context.Context, ownerID uuid.UUID) (*auth.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, st := range s.stores {
		if st.OwnerID == ownerID {
			cp := *st
			return &cp, nil
		}
	}
	return nil, auth.ErrStoreNotFound
}

// --- oauth state ---

func (s *Storage) StoreState(_ context.Context, state string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[state] = expiresAt
	return nil
}

func (s *Storage) ConsumeState(_ context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.states[state]
	if !ok {
		return auth.ErrStateNotFound
	}
	delete(s.states, state)
	if time.Now().After(expiresAt) {
		return auth.ErrStateNotFound
	}
	return nil
}

var _ auth.Storage = (*Storage)(nil)
