package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cartbase/authcore/pkg/logger"
	"github.com/cartbase/authcore/pkg/password"
	"github.com/cartbase/authcore/pkg/sanitizer"
	"github.com/cartbase/authcore/pkg/validator"
)

// MsgResetSent is returned for existing and non-existing emails alike so
// responses never reveal whether an account exists.
const MsgResetSent = "If the email exists, a reset link has been sent"

// ResetStorage is the persistence surface for password resets.
type ResetStorage interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

// ResetService manages the password reset token lifecycle. A successful
// reset revokes every session for the user, forcing re-authentication.
type ResetService struct {
	storage          ResetStorage
	tokens           singleUseTokens
	sessions         *SessionService
	hasher           *password.Hasher
	notifier         Notifier
	logger           *slog.Logger
	passwordStrength validator.PasswordStrengthConfig
}

// ResetOption configures a ResetService during construction.
type ResetOption func(*ResetService)

// WithResetLogger sets a custom logger for the service.
func WithResetLogger(l *slog.Logger) ResetOption {
	return func(s *ResetService) {
		s.logger = l
	}
}

// WithResetNotifier sets the best-effort email notifier.
func WithResetNotifier(n Notifier) ResetOption {
	return func(s *ResetService) {
		s.notifier = n
	}
}

// WithResetTTL sets the token lifetime.
func WithResetTTL(ttl time.Duration) ResetOption {
	return func(s *ResetService) {
		s.tokens.ttl = ttl
	}
}

// WithResetPasswordStrength sets strength requirements for new passwords.
// The default policy only bounds length; composition rules are opt-in.
func WithResetPasswordStrength(cfg validator.PasswordStrengthConfig) ResetOption {
	return func(s *ResetService) {
		s.passwordStrength = cfg
	}
}

// NewResetService creates a password reset service.
func NewResetService(storage ResetStorage, tokenStorage TokenStorage, sessions *SessionService, hasher *password.Hasher, opts ...ResetOption) *ResetService {
	s := &ResetService{
		storage: storage,
		tokens: singleUseTokens{
			storage: tokenStorage,
			purpose: PurposePasswordReset,
			ttl:     DefaultPasswordResetTTL,
		},
		sessions: sessions,
		hasher:   hasher,
		notifier: NopNotifier{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		passwordStrength: validator.PasswordStrengthConfig{
			MaxLength: 128,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request issues a reset token for the email if an account exists. The
// returned message is byte-identical either way, and no token row is
// created for unknown emails.
func (s *ResetService) Request(ctx context.Context, email, ip, userAgent string) (string, error) {
	email = sanitizer.NormalizeEmail(email)
	if err := validator.Apply(
		validator.ValidEmail("email", email),
	); err != nil {
		return "", err
	}

	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return MsgResetSent, nil
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	plaintext, _, err := s.tokens.issue(ctx, user.ID, user.Email, ip, userAgent)
	if err != nil {
		return "", err
	}

	s.notifier.PasswordReset(ctx, user.Email, plaintext)
	return MsgResetSent, nil
}

// Reset redeems a token, overwrites the password hash, and revokes every
// session for the user.
func (s *ResetService) Reset(ctx context.Context, plaintext, newPassword string) error {
	if err := validator.Apply(
		validator.RequiredString("password", newPassword),
		validator.StrongPassword("password", newPassword, s.passwordStrength),
		validator.NotCommonPassword("password", newPassword),
	); err != nil {
		return err
	}

	record, err := s.tokens.redeem(ctx, plaintext)
	if err != nil {
		return err
	}

	user, err := s.storage.GetUserByID(ctx, record.UserID)
	if err != nil {
		return ErrUserNotFound
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.storage.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.sessions.RevokeAll(ctx, user.ID, nil); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}

	s.logger.Info("password reset completed",
		logger.UserID(user.ID.String()),
		logger.Component("reset"),
	)
	return nil
}
