package validator

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

var (
	uppercaseRegex   = regexp.MustCompile(`[A-Z]`)
	lowercaseRegex   = regexp.MustCompile(`[a-z]`)
	digitRegex       = regexp.MustCompile(`[0-9]`)
	specialCharRegex = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?~` + "`" + `]`)

	// Frequently compromised passwords rejected outright regardless of
	// character-class composition.
	commonPasswords = map[string]struct{}{
		"password": {}, "password1": {}, "password123": {}, "123456": {},
		"12345678": {}, "123456789": {}, "1234567890": {}, "qwerty": {},
		"qwerty123": {}, "abc123": {}, "letmein": {}, "welcome": {},
		"iloveyou": {}, "admin": {}, "admin123": {}, "root": {},
		"guest": {}, "dragon": {}, "sunshine": {}, "princess": {},
		"football": {}, "monkey": {}, "111111": {}, "000000": {},
		"qwertyuiop": {}, "asdfghjkl": {}, "zxcvbnm": {},
	}
)

// PasswordStrengthConfig defines password composition requirements.
type PasswordStrengthConfig struct {
	MinLength      int
	MaxLength      int
	MinCharClasses int // of: uppercase, lowercase, digit, special
}

// RequiredString fails when the value is empty after trimming.
func RequiredString(field, value string) Rule {
	return func() ValidationError {
		if strings.TrimSpace(value) == "" {
			return ValidationError{Field: field, Message: "is required"}
		}
		return ValidationError{}
	}
}

// ValidEmail checks basic RFC 5322 address syntax.
func ValidEmail(field, email string) Rule {
	return func() ValidationError {
		if _, err := mail.ParseAddress(email); err != nil {
			return ValidationError{Field: field, Message: "must be a valid email address"}
		}
		return ValidationError{}
	}
}

// StrongPassword checks length bounds and character-class variety.
func StrongPassword(field, password string, cfg PasswordStrengthConfig) Rule {
	return func() ValidationError {
		if len(password) < cfg.MinLength {
			return ValidationError{Field: field, Message: fmt.Sprintf("must be at least %d characters", cfg.MinLength)}
		}
		if cfg.MaxLength > 0 && len(password) > cfg.MaxLength {
			return ValidationError{Field: field, Message: fmt.Sprintf("must be at most %d characters", cfg.MaxLength)}
		}

		classes := 0
		for _, re := range []*regexp.Regexp{uppercaseRegex, lowercaseRegex, digitRegex, specialCharRegex} {
			if re.MatchString(password) {
				classes++
			}
		}
		if classes < cfg.MinCharClasses {
			return ValidationError{
				Field:   field,
				Message: fmt.Sprintf("must contain at least %d of: uppercase, lowercase, digit, special character", cfg.MinCharClasses),
			}
		}
		return ValidationError{}
	}
}

// NotCommonPassword rejects passwords from the known-compromised list.
func NotCommonPassword(field, password string) Rule {
	return func() ValidationError {
		if _, bad := commonPasswords[strings.ToLower(password)]; bad {
			return ValidationError{Field: field, Message: "is too common"}
		}
		return ValidationError{}
	}
}
