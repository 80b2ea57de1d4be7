package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cartbase/authcore/pkg/fingerprint"
	"github.com/cartbase/authcore/pkg/logger"
	"github.com/cartbase/authcore/pkg/token"
	"github.com/cartbase/authcore/pkg/useragent"
)

// Session lifetime and anomaly-detection defaults.
const (
	DefaultSessionTTL    = 24 * time.Hour
	DefaultRememberMeTTL = 30 * 24 * time.Hour

	// Anomaly comparison is bounded so validation latency stays flat.
	anomalyHistoryDepth  = 10
	anomalyHistoryWindow = 7 * 24 * time.Hour
)

// SessionService creates, validates, enumerates, and revokes sessions.
// Every session gets a fingerprint at creation and validation enforces it
// unconditionally: a mismatch revokes the session on the spot.
type SessionService struct {
	storage       SessionStorage
	logger        *slog.Logger
	sessionTTL    time.Duration
	rememberMeTTL time.Duration
}

// SessionOption configures a SessionService during construction.
type SessionOption func(*SessionService)

// WithSessionLogger sets a custom logger for the service.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *SessionService) {
		s.logger = l
	}
}

// WithSessionTTL sets the default session lifetime.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(s *SessionService) {
		s.sessionTTL = ttl
	}
}

// WithRememberMeTTL sets the extended lifetime used when rememberMe is set.
func WithRememberMeTTL(ttl time.Duration) SessionOption {
	return func(s *SessionService) {
		s.rememberMeTTL = ttl
	}
}

// NewSessionService creates a session manager backed by the given storage.
func NewSessionService(storage SessionStorage, opts ...SessionOption) *SessionService {
	s := &SessionService{
		storage:       storage,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		sessionTTL:    DefaultSessionTTL,
		rememberMeTTL: DefaultRememberMeTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create mints a new session for the user and returns the plaintext token
// alongside the persisted record. The plaintext is never stored; only its
// lookup hash is. A fingerprint is always computed and persisted so later
// validation cannot be bypassed by a fingerprint-less record.
func (s *SessionService) Create(ctx context.Context, userID uuid.UUID, ip, userAgent string, rememberMe bool) (string, *Session, error) {
	tok, err := token.Issue()
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	info := useragent.Parse(userAgent)
	now := time.Now()

	ttl := s.sessionTTL
	if rememberMe {
		ttl = s.rememberMeTTL
	}

	session := &Session{
		ID:           uuid.New(),
		UserID:       userID,
		TokenHash:    tok.LookupHash,
		Fingerprint:  fingerprint.Compute(ip, userAgent),
		IPAddress:    ip,
		DeviceType:   info.DeviceType,
		Browser:      info.Browser,
		OS:           info.OS,
		IsActive:     true,
		ExpiresAt:    now.Add(ttl),
		LastActiveAt: now,
		CreatedAt:    now,
	}

	s.detectAnomalies(ctx, session)

	if err := s.storage.CreateSession(ctx, session); err != nil {
		return "", nil, fmt.Errorf("failed to create session: %w", err)
	}

	return tok.Plaintext, session, nil
}

// detectAnomalies compares the new session against the user's recent
// history and logs a security signal on a new IP, device type, or browser.
// The signal never blocks session creation.
func (s *SessionService) detectAnomalies(ctx context.Context, session *Session) {
	recent, err := s.storage.ListRecentSessions(ctx, session.UserID, time.Now().Add(-anomalyHistoryWindow), anomalyHistoryDepth)
	if err != nil {
		s.logger.Error("failed to load session history for anomaly check",
			logger.UserID(session.UserID.String()),
			logger.Error(err),
			logger.Component("session"),
		)
		return
	}
	if len(recent) == 0 {
		return
	}

	knownIP, knownDevice, knownBrowser := false, false, false
	for _, prev := range recent {
		if prev.IPAddress == session.IPAddress {
			knownIP = true
		}
		if prev.DeviceType == session.DeviceType {
			knownDevice = true
		}
		if prev.Browser == session.Browser {
			knownBrowser = true
		}
	}

	var reasons []string
	if !knownIP {
		reasons = append(reasons, "new_ip")
	}
	if !knownDevice {
		reasons = append(reasons, "new_device_type")
	}
	if !knownBrowser {
		reasons = append(reasons, "new_browser")
	}
	if len(reasons) == 0 {
		return
	}

	s.logger.Warn("login from unrecognized environment",
		logger.UserID(session.UserID.String()),
		logger.IP(session.IPAddress),
		slog.Any("signals", reasons),
		slog.String("device_type", session.DeviceType),
		slog.String("browser", session.Browser),
		logger.Component("session"),
	)
}

// Validate resolves a plaintext session token against the store and checks
// liveness and fingerprint. A fingerprint mismatch is treated as a hijack:
// the session is revoked immediately and ErrFingerprintMismatch returned.
// On success the session's last activity timestamp is bumped.
func (s *SessionService) Validate(ctx context.Context, plaintext, ip, userAgent string) (*Session, error) {
	session, err := s.storage.GetSessionByTokenHash(ctx, token.Hash(plaintext))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}

	if !session.Usable(time.Now()) {
		return nil, ErrSessionInvalid
	}

	if !fingerprint.Match(session.Fingerprint, fingerprint.Compute(ip, userAgent)) {
		if err := s.storage.DeactivateSession(ctx, session.UserID, session.ID); err != nil {
			s.logger.Error("failed to revoke session after fingerprint mismatch",
				logger.SessionID(session.ID.String()),
				logger.Error(err),
				logger.Component("session"),
			)
		}
		s.logger.Warn("session fingerprint mismatch, session revoked",
			logger.UserID(session.UserID.String()),
			logger.SessionID(session.ID.String()),
			logger.IP(ip),
			logger.Reason("possible_session_hijack"),
			logger.Component("session"),
		)
		return nil, ErrFingerprintMismatch
	}

	if err := s.storage.TouchSession(ctx, session.ID, time.Now()); err != nil {
		s.logger.Error("failed to bump session activity",
			logger.SessionID(session.ID.String()),
			logger.Error(err),
			logger.Component("session"),
		)
	}

	return session, nil
}

// List returns the user's active, unexpired sessions ordered by last
// activity descending.
func (s *SessionService) List(ctx context.Context, userID uuid.UUID) ([]Session, error) {
	sessions, err := s.storage.ListActiveSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Revoke deactivates one session. The lookup is scoped by userID so a user
// can never revoke another account's session.
func (s *SessionService) Revoke(ctx context.Context, userID, sessionID uuid.UUID) error {
	if err := s.storage.DeactivateSession(ctx, userID, sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// RevokeAll deactivates every session for the user, optionally sparing one
// (the caller's current session).
func (s *SessionService) RevokeAll(ctx context.Context, userID uuid.UUID, except *uuid.UUID) error {
	if err := s.storage.DeactivateAllSessions(ctx, userID, except); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return nil
}

// Rotate revokes every session and mints a fresh one. Used after
// security-sensitive events such as a password change.
func (s *SessionService) Rotate(ctx context.Context, userID uuid.UUID, ip, userAgent string) (string, *Session, error) {
	if err := s.storage.DeactivateAllSessions(ctx, userID, nil); err != nil {
		return "", nil, fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return s.Create(ctx, userID, ip, userAgent, false)
}
