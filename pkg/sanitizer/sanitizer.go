// Package sanitizer normalizes untrusted string input before validation
// and storage.
package sanitizer

import (
	"regexp"
	"strings"
)

var dotRegex = regexp.MustCompile(`\.{2,}`)

// NormalizeEmail prevents common email input errors but preserves the
// original for invalid formats. Consolidates consecutive dots which can
// cause delivery issues with some email providers.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	email = strings.ToLower(email)

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}

	local := parts[0]
	domain := parts[1]

	local = dotRegex.ReplaceAllString(local, ".")
	local = strings.Trim(local, ".")

	return local + "@" + domain
}

// TrimName collapses inner whitespace runs and trims the ends of a
// user-supplied display name.
func TrimName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
