package totp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
)

// BackupCodeCount is the number of one-time backup codes issued when
// two-factor authentication is enabled.
const BackupCodeCount = 10

// GenerateBackupCodes creates cryptographically secure one-time backup codes.
// Each code is an 8-character uppercase hexadecimal string (32 bits of
// entropy), short enough to type from a printed sheet.
func GenerateBackupCodes(count int) ([]string, error) {
	if count < 1 {
		return nil, ErrInvalidBackupCodeCount
	}

	codes := make([]string, count)
	for i := range count {
		codeBytes := make([]byte, 4)
		if _, err := rand.Read(codeBytes); err != nil {
			return nil, errors.Join(ErrFailedToGenerateBackupCode, err)
		}
		codes[i] = fmt.Sprintf("%X", codeBytes)
	}
	return codes, nil
}

// HashBackupCode creates a SHA-256 hash for at-rest storage of backup codes.
// Plaintext codes are shown to the user exactly once.
func HashBackupCode(code string) string {
	hash := sha256.Sum256([]byte(code))
	return hex.EncodeToString(hash[:])
}

// VerifyBackupCode performs a constant-time comparison of a presented code
// against a stored hash. Comparison time must not reveal where differences
// occur.
func VerifyBackupCode(code, hashedCode string) bool {
	computedHash := HashBackupCode(code)
	return subtle.ConstantTimeCompare(
		[]byte(computedHash),
		[]byte(hashedCode),
	) == 1
}
