package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base32"
	"errors"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultDigits    = 6      // Standard 6-digit TOTP codes
	DefaultPeriod    = 30     // 30-second validity window (RFC 6238 standard)
	DefaultAlgorithm = "SHA1" // HMAC-SHA1 algorithm (RFC 6238 standard)

	// DriftWindow is the number of adjacent time steps accepted on either
	// side of the current one, tolerating modest client clock drift.
	DriftWindow = 2
)

var (
	// ValidateSecretKeyRegex ensures Base32 format: uppercase A-Z, digits 2-7, optional padding
	ValidateSecretKeyRegex = regexp.MustCompile("^[A-Z2-7]+=*$")

	otpFormatRegex = regexp.MustCompile(fmt.Sprintf(`^\d{%d}$`, DefaultDigits))
)

// ProvisioningParams contains the parameters for TOTP URI generation.
type ProvisioningParams struct {
	Secret      string // Base32-encoded TOTP secret key (required)
	AccountName string // User identifier like email (required)
	Issuer      string // Service name displayed in authenticator apps (required)
}

// Validate ensures all required provisioning parameters are present and valid.
func (p ProvisioningParams) Validate() error {
	if p.Secret == "" {
		return ErrMissingSecret
	}
	if !ValidateSecretKeyRegex.MatchString(p.Secret) {
		return ErrInvalidSecret
	}
	if p.AccountName == "" {
		return ErrMissingAccountName
	}
	if p.Issuer == "" {
		return ErrMissingIssuer
	}
	return nil
}

// GenerateSecretKey generates a new Base32-encoded secret key for TOTP.
// Uses a 32-byte secret, exceeding the RFC 4226 160-bit recommendation.
func GenerateSecretKey() (string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", errors.Join(ErrFailedToGenerateSecretKey, err)
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(secret), nil
}

// ProvisioningURI creates a properly encoded otpauth:// URI for use with
// authenticator apps, following the Key Uri Format specification:
// https://github.com/google/google-authenticator/wiki/Key-Uri-Format
func ProvisioningURI(params ProvisioningParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}

	label := fmt.Sprintf("%s:%s",
		url.PathEscape(params.Issuer),
		url.PathEscape(params.AccountName),
	)

	query := url.Values{}
	query.Set("secret", params.Secret)
	query.Set("issuer", params.Issuer)
	query.Set("algorithm", DefaultAlgorithm)
	query.Set("digits", fmt.Sprintf("%d", DefaultDigits))
	query.Set("period", fmt.Sprintf("%d", DefaultPeriod))

	return fmt.Sprintf("otpauth://totp/%s?%s", label, query.Encode()), nil
}

// Validate checks the TOTP code provided by the user against the secret.
// Codes from the surrounding DriftWindow time steps are accepted.
// Returns false with a nil error for a well-formed but wrong code.
func Validate(secret, otp string) (bool, error) {
	return ValidateAt(secret, otp, time.Now())
}

// ValidateAt checks a TOTP code for the time step containing t.
// Exposed for deterministic tests.
func ValidateAt(secret, otp string, t time.Time) (bool, error) {
	secret = strings.TrimSpace(strings.ToUpper(secret))
	if !ValidateSecretKeyRegex.MatchString(secret) {
		return false, ErrInvalidSecret
	}

	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret)
	if err != nil {
		return false, errors.Join(ErrFailedToValidateTOTP, err)
	}

	otp = strings.TrimSpace(otp)
	if !otpFormatRegex.MatchString(otp) {
		return false, ErrInvalidOTP
	}

	counter := t.Unix() / int64(DefaultPeriod)
	for i := -DriftWindow; i <= DriftWindow; i++ {
		code := generateHOTP(key, counter+int64(i), DefaultDigits)
		if fmt.Sprintf("%06d", code) == otp {
			return true, nil
		}
	}

	return false, nil
}

// GenerateCode generates the TOTP code for the current time step.
// The secret must be a valid Base32-encoded string.
func GenerateCode(secret string) (string, error) {
	return GenerateCodeAt(secret, time.Now())
}

// GenerateCodeAt generates the TOTP code for the time step containing t.
// Useful for testing or generating codes for specific moments.
func GenerateCodeAt(secret string, t time.Time) (string, error) {
	secret = strings.TrimSpace(strings.ToUpper(secret))
	if !ValidateSecretKeyRegex.MatchString(secret) {
		return "", ErrInvalidSecret
	}

	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret)
	if err != nil {
		return "", errors.Join(ErrFailedToGenerateTOTP, err)
	}

	counter := t.Unix() / int64(DefaultPeriod)
	code := generateHOTP(key, counter, DefaultDigits)

	return fmt.Sprintf("%06d", code), nil
}

// generateHOTP implements the RFC 4226 HMAC-based One-Time Password algorithm.
func generateHOTP(key []byte, counter int64, digits int) int {
	// Convert counter to big-endian 8-byte array (RFC 4226 requirement)
	counterBytes := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		counterBytes[i] = byte(counter & 0xff)
		counter = counter >> 8
	}

	hmacHash := hmac.New(sha1.New, key)
	hmacHash.Write(counterBytes)
	hash := hmacHash.Sum(nil)

	// Dynamic truncation (RFC 4226): use last 4 bits as offset into hash
	offset := hash[len(hash)-1] & 0x0f
	// Extract 31-bit value (clear MSB to ensure positive number)
	code := (int(hash[offset]&0x7f) << 24) |
		(int(hash[offset+1]&0xff) << 16) |
		(int(hash[offset+2]&0xff) << 8) |
		(int(hash[offset+3] & 0xff))

	return code % int(math.Pow10(digits))
}
