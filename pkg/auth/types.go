package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role identifies the account kind and drives post-registration provisioning.
type Role string

const (
	RoleBuyer      Role = "BUYER"
	RoleSeller     Role = "SELLER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Valid reports whether the role is one of the known account kinds.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Provider identifies how the account was originally established.
type Provider string

const (
	ProviderLocal  Provider = "LOCAL"
	ProviderGoogle Provider = "GOOGLE"
)

// Login attempt reason codes recorded in the attempt ledger. Success rows
// carry an empty reason.
const (
	ReasonUserNotFound         = "user_not_found"
	ReasonInvalidPassword      = "invalid_password"
	ReasonAccountSuspended     = "account_suspended"
	ReasonAccountInactive      = "account_inactive"
	ReasonEmailNotVerified     = "email_not_verified"
	ReasonNoPasswordSet        = "no_password_set"
	ReasonInvalidTwoFactorCode = "invalid_2fa_code"
	ReasonInvalidBackupCode    = "invalid_backup_code"
)

// User is an identity record. PasswordHash is empty for OAuth-only
// accounts; TwoFactorSecret is set during 2FA setup and cleared on disable.
type User struct {
	ID               uuid.UUID
	Email            string
	PasswordHash     string
	FirstName        string
	LastName         string
	Phone            string
	Role             Role
	EmailVerified    bool
	IsActive         bool
	IsSuspended      bool
	TwoFactorEnabled bool
	TwoFactorSecret  string
	AuthProvider     Provider
	GoogleID         string
	LastLoginAt      *time.Time
	LastLoginIP      string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasPassword reports whether the account can complete a password login.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// SanitizedUser is the caller-facing view of a user. It never carries the
// password hash, the TOTP secret, or backup codes.
type SanitizedUser struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Phone         string    `json:"phone,omitempty"`
	Role          Role      `json:"role"`
	EmailVerified bool      `json:"email_verified"`
	TwoFactor     bool      `json:"two_factor_enabled"`
	AuthProvider  Provider  `json:"auth_provider"`
	CreatedAt     time.Time `json:"created_at"`
}

// Sanitize strips credential material from the user for external exposure.
func (u *User) Sanitize() *SanitizedUser {
	return &SanitizedUser{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Phone:         u.Phone,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
		TwoFactor:     u.TwoFactorEnabled,
		AuthProvider:  u.AuthProvider,
		CreatedAt:     u.CreatedAt,
	}
}

// Session is a bearer-able authorization grant. Only the SHA-256 lookup
// hash of the opaque token is stored; the plaintext is handed to the client
// exactly once at creation.
type Session struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	TokenHash    string
	Fingerprint  string
	IPAddress    string
	DeviceType   string
	Browser      string
	OS           string
	IsActive     bool
	ExpiresAt    time.Time
	LastActiveAt time.Time
	CreatedAt    time.Time
}

// Usable reports whether the session can still authorize requests at t.
// Fingerprint matching is checked separately by the session manager.
func (s *Session) Usable(t time.Time) bool {
	return s.IsActive && t.Before(s.ExpiresAt)
}

// DeviceLabel renders human-readable device info for session listings.
func (s *Session) DeviceLabel() string {
	return fmt.Sprintf("%s on %s (%s)", s.Browser, s.OS, s.DeviceType)
}

// LoginAttempt is an append-only audit and rate-limit record. UserID is nil
// when the attempt failed before user resolution.
type LoginAttempt struct {
	ID        uuid.UUID
	UserID    *uuid.UUID
	Email     string
	IPAddress string
	UserAgent string
	Success   bool
	Reason    string
	CreatedAt time.Time
}

// TokenPurpose distinguishes the single-use token families that share one
// lifecycle shape.
type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "email_verification"
	PurposePasswordReset     TokenPurpose = "password_reset"
	PurposeMagicLink         TokenPurpose = "magic_link"
)

// SingleUseToken is a hashed, expiring, exactly-once-redeemable credential
// tied to a user. Only the lookup hash is stored.
type SingleUseToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Purpose   TokenPurpose
	TokenHash string
	Email     string
	ExpiresAt time.Time
	Used      bool
	UsedAt    *time.Time
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

// Redeemable reports whether the token can still be consumed at t.
func (t *SingleUseToken) Redeemable(now time.Time) bool {
	return !t.Used && !now.After(t.ExpiresAt)
}

// BackupCode is one hashed single-use 2FA recovery code. Codes live in
// their own set so consuming one is an atomic delete, not a read-modify-write
// of a serialized blob.
type BackupCode struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CodeHash  string
	CreatedAt time.Time
}

// Store is a seller storefront provisioned at registration.
type Store struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Name      string
	Slug      string
	CreatedAt time.Time
}
