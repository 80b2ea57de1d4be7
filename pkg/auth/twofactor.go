package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cartbase/authcore/pkg/logger"
	"github.com/cartbase/authcore/pkg/qrcode"
	"github.com/cartbase/authcore/pkg/totp"
)

// TwoFactorStorage is the persistence surface for the 2FA state machine.
type TwoFactorStorage interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateTwoFactor(ctx context.Context, id uuid.UUID, enabled bool, secret string) error
	BackupCodeStorage
}

// TwoFactorSetup carries the provisioning material returned from Setup.
// The secret and QR code are shown to the user exactly once.
type TwoFactorSetup struct {
	Secret          string
	ProvisioningURI string
	QRCodePNG       []byte
}

// TwoFactorService drives the per-user 2FA state machine:
// disabled -> pending-confirmation (secret stored, flag off) -> enabled
// (backup codes issued) -> disabled (secret and codes cleared, sessions
// revoked).
type TwoFactorService struct {
	storage  TwoFactorStorage
	sessions *SessionService
	notifier Notifier
	logger   *slog.Logger
	issuer   string
	qrSize   int
}

// TwoFactorOption configures a TwoFactorService during construction.
type TwoFactorOption func(*TwoFactorService)

// WithTwoFactorLogger sets a custom logger for the service.
func WithTwoFactorLogger(l *slog.Logger) TwoFactorOption {
	return func(s *TwoFactorService) {
		s.logger = l
	}
}

// WithTwoFactorNotifier sets the best-effort email notifier.
func WithTwoFactorNotifier(n Notifier) TwoFactorOption {
	return func(s *TwoFactorService) {
		s.notifier = n
	}
}

// WithTwoFactorIssuer sets the issuer name shown in authenticator apps.
func WithTwoFactorIssuer(name string) TwoFactorOption {
	return func(s *TwoFactorService) {
		s.issuer = name
	}
}

// NewTwoFactorService creates a 2FA service. sessions is required because
// disabling 2FA revokes every active session.
func NewTwoFactorService(storage TwoFactorStorage, sessions *SessionService, opts ...TwoFactorOption) *TwoFactorService {
	s := &TwoFactorService{
		storage:  storage,
		sessions: sessions,
		notifier: NopNotifier{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		issuer:   "CartBase",
		qrSize:   256,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Setup generates a fresh TOTP secret, persists it unconfirmed, and returns
// the provisioning material. The enabled flag stays off until the user
// proves possession via Enable.
func (s *TwoFactorService) Setup(ctx context.Context, userID uuid.UUID) (*TwoFactorSetup, error) {
	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if user.TwoFactorEnabled {
		return nil, ErrTwoFactorAlreadyEnabled
	}

	secret, err := totp.GenerateSecretKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate totp secret: %w", err)
	}

	if err := s.storage.UpdateTwoFactor(ctx, userID, false, secret); err != nil {
		return nil, fmt.Errorf("failed to store totp secret: %w", err)
	}

	uri, err := totp.ProvisioningURI(totp.ProvisioningParams{
		Secret:      secret,
		AccountName: user.Email,
		Issuer:      s.issuer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build provisioning uri: %w", err)
	}

	png, err := qrcode.Generate(uri, s.qrSize)
	if err != nil {
		// The URI alone is enough to provision manually.
		s.logger.Error("failed to render provisioning qr code",
			logger.UserID(userID.String()),
			logger.Error(err),
			logger.Component("twofactor"),
		)
		png = nil
	}

	return &TwoFactorSetup{
		Secret:          secret,
		ProvisioningURI: uri,
		QRCodePNG:       png,
	}, nil
}

// Verify checks a TOTP code against the user's secret with drift tolerance.
// It never returns an error: absent user, absent secret, or malformed code
// all report false.
func (s *TwoFactorService) Verify(ctx context.Context, userID uuid.UUID, code string) bool {
	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil || user.TwoFactorSecret == "" {
		return false
	}
	ok, err := totp.Validate(user.TwoFactorSecret, code)
	return err == nil && ok
}

// Enable confirms possession of the provisioned secret and activates 2FA.
// It returns the plaintext backup codes, shown exactly once; only their
// hashes persist.
func (s *TwoFactorService) Enable(ctx context.Context, userID uuid.UUID, code string) ([]string, error) {
	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if user.TwoFactorEnabled {
		return nil, ErrTwoFactorAlreadyEnabled
	}
	if user.TwoFactorSecret == "" {
		return nil, ErrTwoFactorNotSetup
	}
	if !s.Verify(ctx, userID, code) {
		return nil, ErrInvalidTwoFactor
	}

	codes, err := totp.GenerateBackupCodes(totp.BackupCodeCount)
	if err != nil {
		return nil, fmt.Errorf("failed to generate backup codes: %w", err)
	}
	hashes := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = totp.HashBackupCode(c)
	}

	if err := s.storage.ReplaceBackupCodes(ctx, userID, hashes); err != nil {
		return nil, fmt.Errorf("failed to store backup codes: %w", err)
	}
	if err := s.storage.UpdateTwoFactor(ctx, userID, true, user.TwoFactorSecret); err != nil {
		return nil, fmt.Errorf("failed to enable two-factor: %w", err)
	}

	s.notifier.TwoFactorEnabled(ctx, user.Email)

	return codes, nil
}

// VerifyBackupCode hash-compares a code against the user's stored set. On
// match the code is removed atomically so it can never authenticate twice.
func (s *TwoFactorService) VerifyBackupCode(ctx context.Context, userID uuid.UUID, code string) bool {
	stored, err := s.storage.ListBackupCodes(ctx, userID)
	if err != nil {
		return false
	}

	for _, bc := range stored {
		if !totp.VerifyBackupCode(code, bc.CodeHash) {
			continue
		}
		if err := s.storage.DeleteBackupCode(ctx, userID, bc.ID); err != nil {
			// A concurrent request consumed it first. Single-use stands.
			if errors.Is(err, ErrBackupCodeNotFound) {
				return false
			}
			s.logger.Error("failed to consume backup code",
				logger.UserID(userID.String()),
				logger.Error(err),
				logger.Component("twofactor"),
			)
			return false
		}
		s.logger.Info("backup code consumed",
			logger.UserID(userID.String()),
			slog.Int("remaining", len(stored)-1),
			logger.Component("twofactor"),
		)
		return true
	}
	return false
}

// RegenerateBackupCodes replaces the whole backup code set. Requires a
// valid TOTP code; previously issued codes stop working immediately.
func (s *TwoFactorService) RegenerateBackupCodes(ctx context.Context, userID uuid.UUID, code string) ([]string, error) {
	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if !user.TwoFactorEnabled {
		return nil, ErrTwoFactorNotEnabled
	}
	if !s.Verify(ctx, userID, code) {
		return nil, ErrInvalidTwoFactor
	}

	codes, err := totp.GenerateBackupCodes(totp.BackupCodeCount)
	if err != nil {
		return nil, fmt.Errorf("failed to generate backup codes: %w", err)
	}
	hashes := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = totp.HashBackupCode(c)
	}
	if err := s.storage.ReplaceBackupCodes(ctx, userID, hashes); err != nil {
		return nil, fmt.Errorf("failed to store backup codes: %w", err)
	}
	return codes, nil
}

// Disable turns 2FA off after verifying a current code, clears the secret
// and backup codes, and revokes every active session so each device must
// re-authenticate without 2FA.
func (s *TwoFactorService) Disable(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}
	if !user.TwoFactorEnabled {
		return ErrTwoFactorNotEnabled
	}
	if !s.Verify(ctx, userID, code) {
		return ErrInvalidTwoFactor
	}

	if err := s.storage.UpdateTwoFactor(ctx, userID, false, ""); err != nil {
		return fmt.Errorf("failed to disable two-factor: %w", err)
	}
	if err := s.storage.DeleteAllBackupCodes(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear backup codes: %w", err)
	}
	if err := s.sessions.RevokeAll(ctx, userID, nil); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}

	s.logger.Info("two-factor authentication disabled",
		logger.UserID(userID.String()),
		logger.Component("twofactor"),
	)
	return nil
}
