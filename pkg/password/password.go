package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used for new hashes. It must stay at
// or above the current OWASP recommendation; raising it transparently
// re-costs new hashes while old ones keep verifying.
const DefaultCost = 12

var (
	// ErrHashingFailed indicates bcrypt could not produce a hash. Callers must
	// treat this as fatal to the operation - there is no plaintext fallback.
	ErrHashingFailed = errors.New("password hashing failed")

	// ErrInvalidCost indicates the configured cost is outside bcrypt's range.
	ErrInvalidCost = errors.New("invalid bcrypt cost")
)

// Hasher wraps bcrypt with a fixed work factor. The zero value is not usable;
// construct with New.
type Hasher struct {
	cost int
}

// New creates a Hasher with the given bcrypt cost. Costs below DefaultCost
// are rejected to prevent accidental weakening via misconfiguration.
func New(cost int) (*Hasher, error) {
	if cost < DefaultCost || cost > bcrypt.MaxCost {
		return nil, ErrInvalidCost
	}
	return &Hasher{cost: cost}, nil
}

// MustNew creates a Hasher that panics on invalid cost. Follows the
// fail-fast-at-startup pattern used across the codebase.
func MustNew(cost int) *Hasher {
	h, err := New(cost)
	if err != nil {
		panic(err)
	}
	return h
}

// Hash produces a salted one-way hash of the plaintext. The plaintext is
// never logged or stored.
func (h *Hasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", errors.Join(ErrHashingFailed, err)
	}
	return string(hash), nil
}

// Verify reports whether the plaintext matches the stored hash.
func (h *Hasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
