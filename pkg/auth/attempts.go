package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cartbase/authcore/pkg/logger"
)

// Lockout defaults: five failures within a trailing fifteen minutes, by
// email or by IP, block further attempts.
const (
	DefaultLockoutWindow = 15 * time.Minute
	DefaultMaxFailures   = 5
)

// AttemptService records every login attempt and enforces a sliding-window
// lockout. The window trails each check, so lockout duration depends on the
// actual attempt timeline rather than resetting at a fixed boundary.
type AttemptService struct {
	storage     AttemptStorage
	logger      *slog.Logger
	window      time.Duration
	maxFailures int
}

// AttemptOption configures an AttemptService during construction.
type AttemptOption func(*AttemptService)

// WithAttemptLogger sets a custom logger for the service.
func WithAttemptLogger(l *slog.Logger) AttemptOption {
	return func(s *AttemptService) {
		s.logger = l
	}
}

// WithLockoutWindow sets the sliding window length.
func WithLockoutWindow(window time.Duration) AttemptOption {
	return func(s *AttemptService) {
		s.window = window
	}
}

// WithMaxFailures sets the failure count that triggers lockout.
func WithMaxFailures(n int) AttemptOption {
	return func(s *AttemptService) {
		s.maxFailures = n
	}
}

// NewAttemptService creates a login attempt ledger.
func NewAttemptService(storage AttemptStorage, opts ...AttemptOption) *AttemptService {
	s := &AttemptService{
		storage:     storage,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		window:      DefaultLockoutWindow,
		maxFailures: DefaultMaxFailures,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record appends one attempt to the ledger. userID is nil when the attempt
// failed before user resolution. Records are never mutated afterwards.
func (s *AttemptService) Record(ctx context.Context, userID *uuid.UUID, email, ip, userAgent string, success bool, reason string) error {
	attempt := &LoginAttempt{
		ID:        uuid.New(),
		UserID:    userID,
		Email:     email,
		IPAddress: ip,
		UserAgent: userAgent,
		Success:   success,
		Reason:    reason,
		CreatedAt: time.Now(),
	}
	if err := s.storage.RecordLoginAttempt(ctx, attempt); err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}
	return nil
}

// CheckRateLimit counts failed attempts in the trailing window where the
// email or the IP matches. At or past the threshold it returns a
// RateLimitError carrying the time until the oldest qualifying failure
// leaves the window.
func (s *AttemptService) CheckRateLimit(ctx context.Context, email, ip string) error {
	now := time.Now()
	failures, err := s.storage.ListRecentFailures(ctx, email, ip, now.Add(-s.window))
	if err != nil {
		return fmt.Errorf("failed to check rate limit: %w", err)
	}
	if len(failures) < s.maxFailures {
		return nil
	}

	oldest := failures[0].CreatedAt
	for _, f := range failures[1:] {
		if f.CreatedAt.Before(oldest) {
			oldest = f.CreatedAt
		}
	}
	retryAfter := oldest.Add(s.window).Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}

	s.logger.Warn("login rate limit triggered",
		slog.String("email", email),
		logger.IP(ip),
		slog.Int("failures", len(failures)),
		logger.Reason("too_many_attempts"),
		logger.Component("attempts"),
	)

	return &RateLimitError{RetryAfter: retryAfter}
}
