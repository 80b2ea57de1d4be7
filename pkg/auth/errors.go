package auth

import (
	"errors"
	"fmt"
	"time"
)

// Conflict errors
var (
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrProviderLinked     = errors.New("provider account already linked to another user")
)

// Unauthorized errors
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountSuspended    = errors.New("account is suspended")
	ErrAccountInactive     = errors.New("account is deactivated")
	ErrSessionInvalid      = errors.New("session is invalid or expired")
	ErrFingerprintMismatch = errors.New("session fingerprint mismatch")
	ErrInvalidTwoFactor    = errors.New("invalid two-factor code")
	ErrInvalidBackupCode   = errors.New("invalid backup code")
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenAlreadyUsed    = errors.New("token already used")
)

// TooManyRequests errors
var ErrTooManyAttempts = errors.New("too many login attempts")

// NotFound errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrTokenNotFound      = errors.New("token not found")
	ErrStoreNotFound      = errors.New("store not found")
	ErrBackupCodeNotFound = errors.New("backup code not found")
	ErrStateNotFound      = errors.New("oauth state not found or expired")
)

// BadRequest errors
var (
	ErrEmailAlreadyVerified     = errors.New("email already verified")
	ErrEmailVerificationPending = errors.New("email verification required")
	ErrNoPasswordSet            = errors.New("no password set for this account")
	ErrTwoFactorNotSetup        = errors.New("two-factor setup has not been started")
	ErrTwoFactorAlreadyEnabled  = errors.New("two-factor authentication already enabled")
	ErrTwoFactorNotEnabled      = errors.New("two-factor authentication not enabled")
	ErrNoProviderLink           = errors.New("no provider link found")
	ErrInvalidRole              = errors.New("invalid role")
	ErrInvalidState             = errors.New("invalid oauth state")
	ErrInvalidCode              = errors.New("invalid oauth code")
	ErrUnverifiedEmail          = errors.New("email not verified by provider")
	ErrManualLinkRequired       = errors.New("account requires explicit linking")
)

// RateLimitError carries the estimated wait until the oldest failure ages
// out of the sliding window. It matches ErrTooManyAttempts via errors.Is.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	minutes := int(e.RetryAfter.Minutes())
	if e.RetryAfter > time.Duration(minutes)*time.Minute {
		minutes++
	}
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("too many login attempts, try again in %d minute(s)", minutes)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrTooManyAttempts
}
