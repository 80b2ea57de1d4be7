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

// RegisterInput carries the registration request fields. Role defaults to
// BUYER when empty.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Role      Role
	StoreName string
}

// LoginInput carries the login request fields. Code and BackupCode are the
// optional second factors; at most one is consulted.
type LoginInput struct {
	Email      string
	Password   string
	Code       string
	BackupCode string
	RememberMe bool
}

// LoginResult is the outcome of a completed or partially completed
// authentication. When Requires2FA is set, no session exists yet and the
// caller must re-submit credentials with a code.
type LoginResult struct {
	User         *SanitizedUser `json:"user,omitempty"`
	AccessToken  string         `json:"access_token,omitempty"`
	SessionToken string         `json:"session_token,omitempty"`
	Requires2FA  bool           `json:"requires_2fa,omitempty"`
	UserID       uuid.UUID      `json:"user_id,omitzero"`
	Message      string         `json:"message,omitempty"`
}

// Service orchestrates registration and password login across the
// credential, session, rate-limit, and 2FA collaborators.
type Service struct {
	users            UserStorage
	attempts         *AttemptService
	sessions         *SessionService
	twoFactor        *TwoFactorService
	verification     *VerificationService
	hasher           *password.Hasher
	issuer           AccessTokenIssuer
	settings         Settings
	notifier         Notifier
	hooks            map[Role]RegistrationHook
	logger           *slog.Logger
	passwordStrength validator.PasswordStrengthConfig
}

// Option configures a Service during construction.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithNotifier sets the best-effort email notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithSettings sets the runtime policy collaborator.
func WithSettings(settings Settings) Option {
	return func(s *Service) {
		s.settings = settings
	}
}

// WithRegistrationHook registers role-specific post-registration
// provisioning.
func WithRegistrationHook(role Role, hook RegistrationHook) Option {
	return func(s *Service) {
		s.hooks[role] = hook
	}
}

// WithPasswordStrength sets strength requirements for new passwords. The
// default policy only bounds length; composition rules are opt-in.
func WithPasswordStrength(cfg validator.PasswordStrengthConfig) Option {
	return func(s *Service) {
		s.passwordStrength = cfg
	}
}

// NewService creates the auth core service.
func NewService(
	users UserStorage,
	attempts *AttemptService,
	sessions *SessionService,
	twoFactor *TwoFactorService,
	verification *VerificationService,
	hasher *password.Hasher,
	issuer AccessTokenIssuer,
	opts ...Option,
) *Service {
	s := &Service{
		users:        users,
		attempts:     attempts,
		sessions:     sessions,
		twoFactor:    twoFactor,
		verification: verification,
		hasher:       hasher,
		issuer:       issuer,
		settings:     NewStaticSettings(SettingsConfig{}),
		notifier:     NopNotifier{},
		hooks:        make(map[Role]RegistrationHook),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		passwordStrength: validator.PasswordStrengthConfig{
			MaxLength: 128,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new account, runs role-specific provisioning, sends a
// verification email, and opens the first session. A concurrent
// registration of the same email surfaces the same conflict as the
// pre-check.
func (s *Service) Register(ctx context.Context, in RegisterInput, ip, userAgent string) (*LoginResult, error) {
	in.Email = sanitizer.NormalizeEmail(in.Email)
	in.FirstName = sanitizer.TrimName(in.FirstName)
	in.LastName = sanitizer.TrimName(in.LastName)
	if in.Role == "" {
		in.Role = RoleBuyer
	}
	if !in.Role.Valid() {
		return nil, ErrInvalidRole
	}

	if err := validator.Apply(
		validator.ValidEmail("email", in.Email),
		validator.RequiredString("first_name", in.FirstName),
		validator.RequiredString("password", in.Password),
		validator.StrongPassword("password", in.Password, s.passwordStrength),
		validator.NotCommonPassword("password", in.Password),
	); err != nil {
		return nil, err
	}

	_, err := s.users.GetUserByEmail(ctx, in.Email)
	if err == nil {
		return nil, ErrEmailAlreadyExists
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &User{
		ID:           uuid.New(),
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		Role:         in.Role,
		IsActive:     true,
		AuthProvider: ProviderLocal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// Concurrent registration of the same email lost the race at the
		// unique constraint. Same conflict as the pre-check.
		if errors.Is(err, ErrEmailAlreadyExists) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	message := "Registration successful. Please check your email to verify your account."
	if hook, ok := s.hooks[user.Role]; ok {
		hookMsg, err := hook.AfterRegister(ctx, user, in)
		if err != nil {
			// The account exists; provisioning is recoverable on next login.
			s.logger.Error("post-registration provisioning failed",
				logger.UserID(user.ID.String()),
				slog.String("role", string(user.Role)),
				logger.Error(err),
				logger.Component("auth"),
			)
		} else if hookMsg != "" {
			message += " " + hookMsg
		}
	}

	if err := s.verification.Send(ctx, user.ID, ip, userAgent); err != nil {
		s.logger.Error("failed to issue verification token",
			logger.UserID(user.ID.String()),
			logger.Error(err),
			logger.Component("auth"),
		)
	}

	sessionToken, _, err := s.sessions.Create(ctx, user.ID, ip, userAgent, false)
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
		Message:      message,
	}, nil
}

// Login runs the password authentication sequence: rate limit, account
// status gates, password verification, then the optional second factor.
// Every failure is recorded in the attempt ledger with a reason code; a
// missing lookup still records, so unknown emails feed the IP-based limit.
func (s *Service) Login(ctx context.Context, in LoginInput, ip, userAgent string) (*LoginResult, error) {
	in.Email = sanitizer.NormalizeEmail(in.Email)

	if err := s.attempts.CheckRateLimit(ctx, in.Email, ip); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.recordFailure(ctx, nil, in.Email, ip, userAgent, ReasonUserNotFound)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if user.IsSuspended {
		s.recordFailure(ctx, &user.ID, in.Email, ip, userAgent, ReasonAccountSuspended)
		return nil, ErrAccountSuspended
	}
	if !user.IsActive {
		s.recordFailure(ctx, &user.ID, in.Email, ip, userAgent, ReasonAccountInactive)
		return nil, ErrAccountInactive
	}

	if s.verificationRequired(ctx, user) {
		s.recordFailure(ctx, &user.ID, in.Email, ip, userAgent, ReasonEmailNotVerified)
		return nil, ErrEmailVerificationPending
	}

	if !user.HasPassword() {
		s.recordFailure(ctx, &user.ID, in.Email, ip, userAgent, ReasonNoPasswordSet)
		return nil, ErrNoPasswordSet
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		s.recordFailure(ctx, &user.ID, in.Email, ip, userAgent, ReasonInvalidPassword)
		return nil, ErrInvalidCredentials
	}

	if user.TwoFactorEnabled {
		switch {
		case in.Code != "":
			if !s.twoFactor.Verify(ctx, user.ID, in.Code) {
				s.recordFailure(ctx, &user.ID, in.Email, ip, userAgent, ReasonInvalidTwoFactorCode)
				return nil, ErrInvalidTwoFactor
			}
		case in.BackupCode != "":
			if !s.twoFactor.VerifyBackupCode(ctx, user.ID, in.BackupCode) {
				s.recordFailure(ctx, &user.ID, in.Email, ip, userAgent, ReasonInvalidBackupCode)
				return nil, ErrInvalidBackupCode
			}
		default:
			// Credentials check out but the second factor is outstanding.
			// No session exists until the caller re-submits with a code.
			return &LoginResult{Requires2FA: true, UserID: user.ID}, nil
		}
	}

	return s.completeLogin(ctx, user, ip, userAgent, in.RememberMe)
}

// completeLogin finishes a successful authentication: records the success,
// updates last-login metadata, opens a session, and issues an access token.
func (s *Service) completeLogin(ctx context.Context, user *User, ip, userAgent string, rememberMe bool) (*LoginResult, error) {
	if err := s.attempts.Record(ctx, &user.ID, user.Email, ip, userAgent, true, ""); err != nil {
		s.logger.Error("failed to record login success",
			logger.UserID(user.ID.String()),
			logger.Error(err),
			logger.Component("auth"),
		)
	}

	now := time.Now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now, ip); err != nil {
		s.logger.Error("failed to update last login",
			logger.UserID(user.ID.String()),
			logger.Error(err),
			logger.Component("auth"),
		)
	}

	sessionToken, _, err := s.sessions.Create(ctx, user.ID, ip, userAgent, rememberMe)
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

// ChangePassword verifies the current password, stores the new hash, and
// rotates sessions so every other device is signed out. Returns the fresh
// session token for the caller's device.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword, ip, userAgent string) (string, error) {
	if err := validator.Apply(
		validator.RequiredString("password", newPassword),
		validator.StrongPassword("password", newPassword, s.passwordStrength),
		validator.NotCommonPassword("password", newPassword),
	); err != nil {
		return "", err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return "", ErrUserNotFound
	}
	if !user.HasPassword() {
		return "", ErrNoPasswordSet
	}
	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return "", fmt.Errorf("failed to update password: %w", err)
	}

	sessionToken, _, err := s.sessions.Rotate(ctx, userID, ip, userAgent)
	if err != nil {
		return "", err
	}

	s.logger.Info("password changed, sessions rotated",
		logger.UserID(userID.String()),
		logger.Component("auth"),
	)
	return sessionToken, nil
}

// verificationRequired reports whether the unverified-email gate blocks
// this login. OAuth-established accounts arrive pre-verified by the
// provider and are exempt.
func (s *Service) verificationRequired(ctx context.Context, user *User) bool {
	if user.EmailVerified || user.AuthProvider != ProviderLocal {
		return false
	}
	if !s.settings.EmailVerificationRequired(ctx) {
		return false
	}
	return time.Since(user.CreatedAt) > s.settings.VerificationGracePeriod(ctx)
}

// recordFailure appends a failed attempt; ledger write errors are logged,
// never surfaced to the login flow.
func (s *Service) recordFailure(ctx context.Context, userID *uuid.UUID, email, ip, userAgent, reason string) {
	if err := s.attempts.Record(ctx, userID, email, ip, userAgent, false, reason); err != nil {
		s.logger.Error("failed to record login attempt",
			slog.String("email", email),
			logger.Reason(reason),
			logger.Error(err),
			logger.Component("auth"),
		)
	}
}
