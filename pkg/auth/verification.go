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
	"github.com/cartbase/authcore/pkg/sanitizer"
	"github.com/cartbase/authcore/pkg/validator"
)

// MsgVerificationSent is returned for existing and non-existing emails
// alike so responses never reveal whether an account exists.
const MsgVerificationSent = "If the email exists, a verification link has been sent"

// VerificationStorage is the persistence surface for email verification.
type VerificationStorage interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUserVerified(ctx context.Context, id uuid.UUID, verified bool) error
}

// VerificationService manages the email verification token lifecycle.
type VerificationService struct {
	storage  VerificationStorage
	tokens   singleUseTokens
	notifier Notifier
	logger   *slog.Logger
}

// VerificationOption configures a VerificationService during construction.
type VerificationOption func(*VerificationService)

// WithVerificationLogger sets a custom logger for the service.
func WithVerificationLogger(l *slog.Logger) VerificationOption {
	return func(s *VerificationService) {
		s.logger = l
	}
}

// WithVerificationNotifier sets the best-effort email notifier.
func WithVerificationNotifier(n Notifier) VerificationOption {
	return func(s *VerificationService) {
		s.notifier = n
	}
}

// WithVerificationTTL sets the token lifetime.
func WithVerificationTTL(ttl time.Duration) VerificationOption {
	return func(s *VerificationService) {
		s.tokens.ttl = ttl
	}
}

// NewVerificationService creates an email verification service.
func NewVerificationService(storage VerificationStorage, tokenStorage TokenStorage, opts ...VerificationOption) *VerificationService {
	s := &VerificationService{
		storage: storage,
		tokens: singleUseTokens{
			storage: tokenStorage,
			purpose: PurposeEmailVerification,
			ttl:     DefaultVerificationTTL,
		},
		notifier: NopNotifier{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send issues a verification token for a known user and dispatches the
// email best-effort. Used right after registration when the user is
// already resolved.
func (s *VerificationService) Send(ctx context.Context, userID uuid.UUID, ip, userAgent string) error {
	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}
	if user.EmailVerified {
		return ErrEmailAlreadyVerified
	}

	plaintext, _, err := s.tokens.issue(ctx, user.ID, user.Email, ip, userAgent)
	if err != nil {
		return err
	}

	s.notifier.EmailVerification(ctx, user.Email, plaintext)
	return nil
}

// Resend issues a fresh verification token by email address. The returned
// message is identical whether or not the account exists; only a verified
// account produces a distinct error, since verification state is not
// secret to the account holder.
func (s *VerificationService) Resend(ctx context.Context, email, ip, userAgent string) (string, error) {
	email = sanitizer.NormalizeEmail(email)
	if err := validator.Apply(
		validator.ValidEmail("email", email),
	); err != nil {
		return "", err
	}

	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return MsgVerificationSent, nil
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}
	if user.EmailVerified {
		return "", ErrEmailAlreadyVerified
	}

	plaintext, _, err := s.tokens.issue(ctx, user.ID, user.Email, ip, userAgent)
	if err != nil {
		return "", err
	}

	s.notifier.EmailVerification(ctx, user.Email, plaintext)
	return MsgVerificationSent, nil
}

// Verify redeems a verification token and flips the user's verified flag.
func (s *VerificationService) Verify(ctx context.Context, plaintext string) (*SanitizedUser, error) {
	record, err := s.tokens.redeem(ctx, plaintext)
	if err != nil {
		return nil, err
	}

	user, err := s.storage.GetUserByID(ctx, record.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	if !user.EmailVerified {
		if err := s.storage.UpdateUserVerified(ctx, user.ID, true); err != nil {
			return nil, fmt.Errorf("failed to mark email verified: %w", err)
		}
		user.EmailVerified = true
		s.logger.Info("email verified",
			logger.UserID(user.ID.String()),
			logger.Component("verification"),
		)
	}

	return user.Sanitize(), nil
}
