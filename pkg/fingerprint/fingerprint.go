package fingerprint

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Length is the number of hex characters in a fingerprint (128 bits of the
// SHA-256 digest).
const Length = 32

// Compute derives a device fingerprint from the client IP and User-Agent
// string. The result is the first 32 hex characters of
// SHA-256(ip + ":" + userAgent).
//
// A fingerprint is derived data, not an independently trusted credential:
// it binds a session to the network/device context observed at creation so
// that a stolen session token presented from elsewhere fails validation.
func Compute(ip, userAgent string) string {
	hash := sha256.Sum256([]byte(ip + ":" + userAgent))
	return hex.EncodeToString(hash[:])[:Length]
}

// Match compares a stored fingerprint against one recomputed from the
// current request, in constant time.
func Match(stored, current string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(current)) == 1
}
