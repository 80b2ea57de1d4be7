package auth

import (
	"context"
	"time"
)

// Settings exposes the runtime policy flags consulted on every login
// attempt. Implementations may read from a database or a config source;
// the services treat each call as current.
type Settings interface {
	// EmailVerificationRequired reports whether unverified accounts are
	// blocked from password login once past the grace period.
	EmailVerificationRequired(ctx context.Context) bool
	// VerificationGracePeriod is how long after registration an unverified
	// account may still log in when verification is required.
	VerificationGracePeriod(ctx context.Context) time.Duration
}

// SettingsConfig holds the static policy values loaded from the
// environment.
type SettingsConfig struct {
	EmailVerificationRequired bool `env:"AUTH_EMAIL_VERIFICATION_REQUIRED" envDefault:"false"`
	VerificationGraceDays     int  `env:"AUTH_VERIFICATION_GRACE_DAYS" envDefault:"3"`
}

// StaticSettings is a Settings implementation backed by fixed config
// values.
type StaticSettings struct {
	cfg SettingsConfig
}

// NewStaticSettings creates a Settings collaborator from config.
func NewStaticSettings(cfg SettingsConfig) *StaticSettings {
	return &StaticSettings{cfg: cfg}
}

func (s *StaticSettings) EmailVerificationRequired(context.Context) bool {
	return s.cfg.EmailVerificationRequired
}

func (s *StaticSettings) VerificationGracePeriod(context.Context) time.Duration {
	return time.Duration(s.cfg.VerificationGraceDays) * 24 * time.Hour
}

var _ Settings = (*StaticSettings)(nil)
