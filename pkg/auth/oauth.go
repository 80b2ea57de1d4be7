package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cartbase/authcore/pkg/logger"
	"github.com/cartbase/authcore/pkg/sanitizer"
)

// OAuthUserStorage is the persistence surface for OAuth reconciliation.
type OAuthUserStorage interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*User, error)
	UpdateUserVerified(ctx context.Context, id uuid.UUID, verified bool) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time, ip string) error
	LinkGoogleID(ctx context.Context, id uuid.UUID, googleID string) error
	UnlinkGoogleID(ctx context.Context, id uuid.UUID) error
}

// OAuthResult is the outcome of an OAuth sign-in: the completed login plus
// whether the account was created or newly linked in the process.
type OAuthResult struct {
	*LoginResult
	IsNew  bool `json:"is_new,omitempty"`
	Linked bool `json:"linked,omitempty"`
}

// OAuthService reconciles a third-party identity against existing accounts
// by provider ID, then by email, creating a new account when neither
// matches.
type OAuthService struct {
	storage     OAuthUserStorage
	states      OAuthStateStorage
	adapter     ProviderAdapter
	sessions    *SessionService
	issuer      AccessTokenIssuer
	notifier    Notifier
	provisioner *SellerProvisioner
	logger      *slog.Logger
	stateTTL    time.Duration
}

// OAuthOption configures an OAuthService during construction.
type OAuthOption func(*OAuthService)

// WithOAuthLogger sets a custom logger for the service.
func WithOAuthLogger(l *slog.Logger) OAuthOption {
	return func(s *OAuthService) {
		s.logger = l
	}
}

// WithOAuthNotifier sets the best-effort email notifier.
func WithOAuthNotifier(n Notifier) OAuthOption {
	return func(s *OAuthService) {
		s.notifier = n
	}
}

// WithOAuthProvisioner sets the seller store backfill collaborator.
func WithOAuthProvisioner(p *SellerProvisioner) OAuthOption {
	return func(s *OAuthService) {
		s.provisioner = p
	}
}

// WithOAuthStateTTL sets the CSRF state token lifetime.
func WithOAuthStateTTL(ttl time.Duration) OAuthOption {
	return func(s *OAuthService) {
		s.stateTTL = ttl
	}
}

// NewOAuthService creates an OAuth reconciliation service for one provider.
func NewOAuthService(storage OAuthUserStorage, states OAuthStateStorage, adapter ProviderAdapter, sessions *SessionService, issuer AccessTokenIssuer, opts ...OAuthOption) *OAuthService {
	s := &OAuthService{
		storage:  storage,
		states:   states,
		adapter:  adapter,
		sessions: sessions,
		issuer:   issuer,
		notifier: NopNotifier{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		stateTTL: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAuthURL mints a one-time state token and returns the provider
// authorization URL carrying it.
func (s *OAuthService) GetAuthURL(ctx context.Context) (string, error) {
	state, err := generateState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	if err := s.states.StoreState(ctx, state, time.Now().Add(s.stateTTL)); err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}
	return s.adapter.AuthURL(state)
}

// Callback consumes the state token, resolves the provider profile, and
// runs reconciliation.
func (s *OAuthService) Callback(ctx context.Context, code, state, ip, userAgent string) (*OAuthResult, error) {
	if err := s.states.ConsumeState(ctx, state); err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("failed to validate state: %w", err)
	}

	profile, err := s.adapter.ResolveProfile(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("failed to resolve provider profile: %w", err)
	}

	return s.Authenticate(ctx, profile, ip, userAgent)
}

// Authenticate reconciles a normalized provider profile:
//
//  1. Provider ID already known: an ordinary sign-in.
//  2. Email known but unlinked: auto-link, unless the account is suspended
//     or protected by 2FA, which forces an explicit authenticated link
//     instead of a blind OAuth takeover.
//  3. Neither: create a pre-verified BUYER account with no password.
func (s *OAuthService) Authenticate(ctx context.Context, profile ProviderProfile, ip, userAgent string) (*OAuthResult, error) {
	if profile.ProviderUserID == "" || profile.Email == "" {
		return nil, fmt.Errorf("invalid profile: missing provider user id or email")
	}
	profile.Email = sanitizer.NormalizeEmail(profile.Email)
	if !profile.EmailVerified {
		return nil, ErrUnverifiedEmail
	}

	user, err := s.storage.GetUserByGoogleID(ctx, profile.ProviderUserID)
	if err == nil {
		return s.signInExisting(ctx, user, ip, userAgent, false)
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check provider link: %w", err)
	}

	user, err = s.storage.GetUserByEmail(ctx, profile.Email)
	if err == nil {
		return s.autoLink(ctx, user, profile, ip, userAgent)
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}

	return s.createFromProfile(ctx, profile, ip, userAgent)
}

func (s *OAuthService) signInExisting(ctx context.Context, user *User, ip, userAgent string, linked bool) (*OAuthResult, error) {
	if user.IsSuspended {
		return nil, ErrAccountSuspended
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	if s.provisioner != nil {
		if err := s.provisioner.EnsureStore(ctx, user); err != nil {
			s.logger.Error("failed to backfill seller store",
				logger.UserID(user.ID.String()),
				logger.Error(err),
				logger.Component("oauth"),
			)
		}
	}

	now := time.Now()
	if err := s.storage.UpdateLastLogin(ctx, user.ID, now, ip); err != nil {
		s.logger.Error("failed to update last login",
			logger.UserID(user.ID.String()),
			logger.Error(err),
			logger.Component("oauth"),
		)
	}

	sessionToken, _, err := s.sessions.Create(ctx, user.ID, ip, userAgent, true)
	if err != nil {
		return nil, err
	}
	accessToken, err := s.issuer.IssueAccess(user.ID.String(), user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	return &OAuthResult{
		LoginResult: &LoginResult{
			User:         user.Sanitize(),
			AccessToken:  accessToken,
			SessionToken: sessionToken,
			Message:      "Signed in successfully",
		},
		Linked: linked,
	}, nil
}

// autoLink attaches the provider identity to an existing unlinked account.
// Suspended and 2FA-protected accounts are refused: taking over such an
// account through OAuth alone would bypass their protections.
func (s *OAuthService) autoLink(ctx context.Context, user *User, profile ProviderProfile, ip, userAgent string) (*OAuthResult, error) {
	if user.IsSuspended {
		return nil, ErrAccountSuspended
	}
	if user.TwoFactorEnabled {
		return nil, ErrManualLinkRequired
	}

	if err := s.storage.LinkGoogleID(ctx, user.ID, profile.ProviderUserID); err != nil {
		if errors.Is(err, ErrProviderLinked) {
			return nil, ErrProviderLinked
		}
		return nil, fmt.Errorf("failed to link provider: %w", err)
	}
	user.GoogleID = profile.ProviderUserID

	if !user.EmailVerified {
		if err := s.storage.UpdateUserVerified(ctx, user.ID, true); err != nil {
			return nil, fmt.Errorf("failed to mark email verified: %w", err)
		}
		user.EmailVerified = true
	}

	s.notifier.AccountLinked(ctx, user.Email)

	return s.signInExisting(ctx, user, ip, userAgent, true)
}

func (s *OAuthService) createFromProfile(ctx context.Context, profile ProviderProfile, ip, userAgent string) (*OAuthResult, error) {
	now := time.Now()
	user := &User{
		ID:            uuid.New(),
		Email:         profile.Email,
		FirstName:     profile.FirstName,
		LastName:      profile.LastName,
		Role:          RoleBuyer,
		EmailVerified: true,
		IsActive:      true,
		AuthProvider:  ProviderGoogle,
		GoogleID:      profile.ProviderUserID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.storage.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.notifier.Welcome(ctx, user.Email, user.FirstName)

	result, err := s.signInExisting(ctx, user, ip, userAgent, false)
	if err != nil {
		return nil, err
	}
	result.IsNew = true
	return result, nil
}

// Link attaches the provider identity to an authenticated user via a full
// code exchange. Rejected when the provider account already belongs to a
// different user.
func (s *OAuthService) Link(ctx context.Context, userID uuid.UUID, code, state string) error {
	if err := s.states.ConsumeState(ctx, state); err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return ErrInvalidState
		}
		return fmt.Errorf("failed to validate state: %w", err)
	}

	profile, err := s.adapter.ResolveProfile(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			return ErrInvalidCode
		}
		return fmt.Errorf("failed to resolve provider profile: %w", err)
	}

	return s.LinkProfile(ctx, userID, profile)
}

// LinkProfile attaches an already-resolved provider profile to a user.
func (s *OAuthService) LinkProfile(ctx context.Context, userID uuid.UUID, profile ProviderProfile) error {
	existing, err := s.storage.GetUserByGoogleID(ctx, profile.ProviderUserID)
	if err == nil {
		if existing.ID == userID {
			return nil // already linked to this user
		}
		return ErrProviderLinked
	}
	if !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("failed to check provider link: %w", err)
	}

	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}

	if err := s.storage.LinkGoogleID(ctx, userID, profile.ProviderUserID); err != nil {
		if errors.Is(err, ErrProviderLinked) {
			return ErrProviderLinked
		}
		return fmt.Errorf("failed to link provider: %w", err)
	}

	s.notifier.AccountLinked(ctx, user.Email)
	return nil
}

// Unlink removes the provider identity. Refused when the account has no
// password, which would strand it without any login method.
func (s *OAuthService) Unlink(ctx context.Context, userID uuid.UUID) error {
	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}
	if user.GoogleID == "" {
		return ErrNoProviderLink
	}
	if !user.HasPassword() {
		return ErrNoPasswordSet
	}

	if err := s.storage.UnlinkGoogleID(ctx, userID); err != nil {
		return fmt.Errorf("failed to unlink provider: %w", err)
	}
	return nil
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
