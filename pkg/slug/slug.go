// Package slug creates URL-safe identifiers from display names.
//
// Store slugs must be unique platform-wide, so Unique appends a timestamp
// suffix to the sanitized name rather than relying on the name alone.
package slug

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Make creates a URL-safe slug: lowercase ASCII letters and digits with
// single hyphens between word runs. Everything else collapses into a hyphen.
func Make(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastWasSep := true // avoid a leading separator
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastWasSep = false
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			// Non-ASCII letters and digits are dropped rather than
			// transliterated; the suffix keeps slugs unique regardless.
			continue
		}
		if !lastWasSep {
			b.WriteByte('-')
			lastWasSep = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}

// Unique creates a slug with a timestamp suffix for collision avoidance,
// e.g. "janes-vintage-store-1717171717".
func Unique(s string) string {
	base := Make(s)
	suffix := fmt.Sprintf("%d", time.Now().Unix())
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}
