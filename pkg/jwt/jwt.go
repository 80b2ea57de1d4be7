package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTTL is the lifetime of issued access tokens.
const DefaultAccessTTL = 7 * 24 * time.Hour

// Config holds access-token issuer configuration.
type Config struct {
	SigningKey string        `env:"JWT_SIGNING_KEY,required"`
	Issuer     string        `env:"JWT_ISSUER" envDefault:"authcore"`
	AccessTTL  time.Duration `env:"JWT_ACCESS_TTL" envDefault:"168h"`
}

// AccessClaims are the claims carried by an access token: the user it was
// issued to plus the email and role snapshot at issuance time.
type AccessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer mints and parses signed, time-boxed bearer credentials using
// HMAC-SHA256. The signing key is kept in memory only and should be at
// least 32 bytes.
type Issuer struct {
	signingKey []byte
	issuer     string
	accessTTL  time.Duration
}

// New creates an access-token issuer from config.
func New(cfg Config) (*Issuer, error) {
	if cfg.SigningKey == "" {
		return nil, ErrMissingSigningKey
	}
	ttl := cfg.AccessTTL
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}
	return &Issuer{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		accessTTL:  ttl,
	}, nil
}

// IssueAccess creates a signed access token for the given subject.
func (i *Issuer) IssueAccess(userID, email, role string) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.signingKey)
	if err != nil {
		return "", errors.Join(ErrSigningFailed, err)
	}
	return signed, nil
}

// ParseAccess validates a token string and returns its claims. Expired
// tokens return ErrExpiredToken; any other validation failure returns
// ErrInvalidToken.
func (i *Issuer) ParseAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return i.signingKey, nil
		},
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, errors.Join(ErrInvalidToken, err)
	}
	return claims, nil
}
