package token

import "errors"

var (
	// ErrGenerationFailed indicates the system entropy source failed.
	ErrGenerationFailed = errors.New("token generation failed")
)
