package auth_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartbase/authcore/pkg/auth"
	"github.com/cartbase/authcore/storage/memory"
)

func TestAttemptService_CheckRateLimit(t *testing.T) {
	t.Parallel()

	record := func(t *testing.T, svc *auth.AttemptService, email, ip string, success bool) {
		t.Helper()
		require.NoError(t, svc.Record(context.Background(), nil, email, ip, testUserAgent, success, auth.ReasonInvalidPassword))
	}

	t.Run("below threshold passes", func(t *testing.T) {
		t.Parallel()

		svc := auth.NewAttemptService(memory.New())
		for range 4 {
			record(t, svc, "a@example.com", testIP, false)
		}
		assert.NoError(t, svc.CheckRateLimit(context.Background(), "a@example.com", testIP))
	})

	t.Run("threshold blocks by email", func(t *testing.T) {
		t.Parallel()

		svc := auth.NewAttemptService(memory.New())
		for i := range 5 {
			// Different IPs; the email alone crosses the threshold.
			record(t, svc, "a@example.com", ipFor(i), false)
		}
		err := svc.CheckRateLimit(context.Background(), "a@example.com", "203.0.113.99")
		assert.ErrorIs(t, err, auth.ErrTooManyAttempts)
	})

	t.Run("threshold blocks by ip across emails", func(t *testing.T) {
		t.Parallel()

		svc := auth.NewAttemptService(memory.New())
		emails := []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com"}
		for _, e := range emails {
			record(t, svc, e, testIP, false)
		}
		err := svc.CheckRateLimit(context.Background(), "fresh@x.com", testIP)
		assert.ErrorIs(t, err, auth.ErrTooManyAttempts)
	})

	t.Run("successes do not count", func(t *testing.T) {
		t.Parallel()

		svc := auth.NewAttemptService(memory.New())
		for range 10 {
			record(t, svc, "a@example.com", testIP, true)
		}
		assert.NoError(t, svc.CheckRateLimit(context.Background(), "a@example.com", testIP))
	})

	t.Run("failures outside the window age out", func(t *testing.T) {
		t.Parallel()

		// A tiny window so the failures below have already aged out.
		svc := auth.NewAttemptService(memory.New(), auth.WithLockoutWindow(time.Nanosecond))
		for range 5 {
			record(t, svc, "a@example.com", testIP, false)
		}
		time.Sleep(time.Millisecond)
		assert.NoError(t, svc.CheckRateLimit(context.Background(), "a@example.com", testIP))
	})

	t.Run("retry-after reflects the oldest failure", func(t *testing.T) {
		t.Parallel()

		svc := auth.NewAttemptService(memory.New())
		for range 5 {
			record(t, svc, "a@example.com", testIP, false)
		}

		err := svc.CheckRateLimit(context.Background(), "a@example.com", testIP)
		var rle *auth.RateLimitError
		require.ErrorAs(t, err, &rle)
		assert.Positive(t, rle.RetryAfter)
		assert.LessOrEqual(t, rle.RetryAfter, auth.DefaultLockoutWindow)
	})
}

func ipFor(i int) string {
	return fmt.Sprintf("198.51.100.%d", i+1)
}
