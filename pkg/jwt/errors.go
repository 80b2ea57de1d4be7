package jwt

import "errors"

var (
	ErrMissingSigningKey = errors.New("signing key is required")
	ErrSigningFailed     = errors.New("failed to sign token")
	ErrInvalidToken      = errors.New("invalid token")
	ErrExpiredToken      = errors.New("token expired")
)
