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

// MsgMagicLinkSent is returned for existing and non-existing emails alike
// so responses never reveal whether an account exists.
const MsgMagicLinkSent = "If the email exists, a sign-in link has been sent"

// MagicLinkStorage is the persistence surface for magic link sign-in.
type MagicLinkStorage interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUserVerified(ctx context.Context, id uuid.UUID, verified bool) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time, ip string) error
}

// MagicLinkService handles passwordless sign-in. Redeeming a link proves
// control of the mailbox, so it also marks the email verified.
type MagicLinkService struct {
	storage  MagicLinkStorage
	tokens   singleUseTokens
	sessions *SessionService
	issuer   AccessTokenIssuer
	notifier Notifier
	logger   *slog.Logger
}

// MagicLinkOption configures a MagicLinkService during construction.
type MagicLinkOption func(*MagicLinkService)

// WithMagicLinkLogger sets a custom logger for the service.
func WithMagicLinkLogger(l *slog.Logger) MagicLinkOption {
	return func(s *MagicLinkService) {
		s.logger = l
	}
}

// WithMagicLinkNotifier sets the best-effort email notifier.
func WithMagicLinkNotifier(n Notifier) MagicLinkOption {
	return func(s *MagicLinkService) {
		s.notifier = n
	}
}

// WithMagicLinkTTL sets the token lifetime.
func WithMagicLinkTTL(ttl time.Duration) MagicLinkOption {
	return func(s *MagicLinkService) {
		s.tokens.ttl = ttl
	}
}

// NewMagicLinkService creates a magic link sign-in service.
func NewMagicLinkService(storage MagicLinkStorage, tokenStorage TokenStorage, sessions *SessionService, issuer AccessTokenIssuer, opts ...MagicLinkOption) *MagicLinkService {
	s := &MagicLinkService{
		storage: storage,
		tokens: singleUseTokens{
			storage: tokenStorage,
			purpose: PurposeMagicLink,
			ttl:     DefaultMagicLinkTTL,
		},
		sessions: sessions,
		issuer:   issuer,
		notifier: NopNotifier{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request issues a magic link token for the email if an account exists.
// The returned message is identical either way.
func (s *MagicLinkService) Request(ctx context.Context, email, ip, userAgent string) (string, error) {
	email = sanitizer.NormalizeEmail(email)
	if err := validator.Apply(
		validator.ValidEmail("email", email),
	); err != nil {
		return "", err
	}

	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return MsgMagicLinkSent, nil
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}
	if user.IsSuspended || !user.IsActive {
		// Send nothing, reveal nothing.
		return MsgMagicLinkSent, nil
	}

	plaintext, _, err := s.tokens.issue(ctx, user.ID, user.Email, ip, userAgent)
	if err != nil {
		return "", err
	}

	s.notifier.MagicLink(ctx, user.Email, plaintext)
	return MsgMagicLinkSent, nil
}

// Verify redeems a magic link and completes a login: marks the email
// verified, updates last-login metadata, creates a long-lived session, and
// issues an access token.
func (s *MagicLinkService) Verify(ctx context.Context, plaintext, ip, userAgent string) (*LoginResult, error) {
	record, err := s.tokens.redeem(ctx, plaintext)
	if err != nil {
		return nil, err
	}

	user, err := s.storage.GetUserByID(ctx, record.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if user.IsSuspended {
		return nil, ErrAccountSuspended
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	if !user.EmailVerified {
		if err := s.storage.UpdateUserVerified(ctx, user.ID, true); err != nil {
			return nil, fmt.Errorf("failed to mark email verified: %w", err)
		}
		user.EmailVerified = true
	}

	now := time.Now()
	if err := s.storage.UpdateLastLogin(ctx, user.ID, now, ip); err != nil {
		s.logger.Error("failed to update last login",
			logger.UserID(user.ID.String()),
			logger.Error(err),
			logger.Component("magiclink"),
		)
	}

	// Mailbox control is a strong signal, so the session gets the extended
	// lifetime.
	sessionToken, _, err := s.sessions.Create(ctx, user.ID, ip, userAgent, true)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.issuer.IssueAccess(user.ID.String(), user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	return &LoginResult{
		User:         user.Sanitize(),
		AccessToken:  accessToken,
		SessionToken: sessionToken,
		Message:      "Signed in successfully",
	}, nil
}
