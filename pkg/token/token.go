package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

// byteLength is the number of random bytes per token, giving 256 bits of
// entropy.
const byteLength = 32

// Token pairs a plaintext credential with its persistent lookup hash.
// The plaintext is handed to the client exactly once; only LookupHash is
// stored. Loss of the plaintext makes the token unrecoverable by design.
type Token struct {
	Plaintext  string
	LookupHash string
}

// Issue generates a cryptographically random opaque token. The plaintext is
// base64url-encoded; LookupHash is the hex-encoded SHA-256 of the plaintext,
// deterministic so redemption can look up by hash without ever persisting
// the plaintext.
func Issue() (Token, error) {
	b := make([]byte, byteLength)
	if _, err := rand.Read(b); err != nil {
		return Token{}, errors.Join(ErrGenerationFailed, err)
	}
	plaintext := base64.RawURLEncoding.EncodeToString(b)
	return Token{
		Plaintext:  plaintext,
		LookupHash: Hash(plaintext),
	}, nil
}

// Hash computes the hex-encoded SHA-256 lookup hash of a presented plaintext.
// Used at redemption time to find the stored record.
func Hash(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// Match compares a presented plaintext against a stored lookup hash in
// constant time.
func Match(plaintext, lookupHash string) bool {
	computed := Hash(plaintext)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(lookupHash)) == 1
}
