package authapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartbase/authcore/pkg/auth"
	"github.com/cartbase/authcore/pkg/jwt"
	"github.com/cartbase/authcore/pkg/password"
	"github.com/cartbase/authcore/pkg/ratelimiter"
	"github.com/cartbase/authcore/pkg/validator"
	"github.com/cartbase/authcore/storage/memory"
	"github.com/cartbase/authcore/svc/authapi"
)

const testUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// captureNotifier records issued tokens so tests can follow email-only
// flows end to end.
type captureNotifier struct {
	mu                sync.Mutex
	verificationToken string
	resetToken        string
	magicLinkToken    string
}

func (n *captureNotifier) MagicLink(_ context.Context, _, token string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.magicLinkToken = token
}

func (n *captureNotifier) PasswordReset(_ context.Context, _, token string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resetToken = token
}

func (n *captureNotifier) EmailVerification(_ context.Context, _, token string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verificationToken = token
}

func (n *captureNotifier) Welcome(context.Context, string, string)               {}
func (n *captureNotifier) SellerWelcome(context.Context, string, string, string) {}
func (n *captureNotifier) TwoFactorEnabled(context.Context, string)              {}
func (n *captureNotifier) AccountLinked(context.Context, string)                 {}

func (n *captureNotifier) lastResetToken() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.resetToken
}

func (n *captureNotifier) lastMagicLinkToken() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.magicLinkToken
}

type testAPI struct {
	handler  http.Handler
	store    *memory.Storage
	notifier *captureNotifier
	sessions *auth.SessionService
}

func newTestAPI(t *testing.T, opts ...authapi.Option) *testAPI {
	t.Helper()

	store := memory.New()
	notifier := &captureNotifier{}

	hasher, err := password.New(password.DefaultCost)
	require.NoError(t, err)

	issuer, err := jwt.New(jwt.Config{SigningKey: "test-signing-key-at-least-32-bytes"})
	require.NoError(t, err)

	sessions := auth.NewSessionService(store)
	attempts := auth.NewAttemptService(store)
	twoFactor := auth.NewTwoFactorService(store, sessions, auth.WithTwoFactorNotifier(notifier))
	verification := auth.NewVerificationService(store, store, auth.WithVerificationNotifier(notifier))
	reset := auth.NewResetService(store, store, sessions, hasher, auth.WithResetNotifier(notifier))
	magicLink := auth.NewMagicLinkService(store, store, sessions, issuer, auth.WithMagicLinkNotifier(notifier))

	// The handlers are exercised with composition rules on, matching a
	// deployment that sets PASSWORD_MIN_LENGTH.
	svc := auth.NewService(store, attempts, sessions, twoFactor, verification, hasher, issuer,
		auth.WithNotifier(notifier),
		auth.WithPasswordStrength(validator.PasswordStrengthConfig{
			MinLength:      8,
			MaxLength:      128,
			MinCharClasses: 2,
		}),
	)

	api := authapi.New(authapi.Deps{
		Service:      svc,
		Sessions:     sessions,
		TwoFactor:    twoFactor,
		Verification: verification,
		Reset:        reset,
		MagicLink:    magicLink,
		Users:        store,
	}, opts...)

	return &testAPI{
		handler:  api.Router(),
		store:    store,
		notifier: notifier,
		sessions: sessions,
	}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("User-Agent", testUserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var body struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (code, message string) {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&body))
	return body.Error.Code, body.Error.Message
}

func (a *testAPI) registerUser(t *testing.T, email, pass string) *auth.LoginResult {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/register", "", map[string]any{
		"email":      email,
		"password":   pass,
		"first_name": "Ada",
		"last_name":  "Lovelace",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	result := decodeData[*auth.LoginResult](t, rec)
	require.NotEmpty(t, result.SessionToken)
	return result
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()

	t.Run("register returns session and user", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)

		result := api.registerUser(t, "ada@example.com", "Tr0ub4dor&Horse")
		assert.Equal(t, "ada@example.com", result.User.Email)
		assert.Equal(t, auth.RoleBuyer, result.User.Role)
		assert.NotEmpty(t, result.AccessToken)
	})

	t.Run("duplicate email maps to 409", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		api.registerUser(t, "ada@example.com", "Tr0ub4dor&Horse")

		rec := api.do(t, http.MethodPost, "/register", "", map[string]any{
			"email":      "ada@example.com",
			"password":   "Tr0ub4dor&Horse",
			"first_name": "Ada",
			"last_name":  "Lovelace",
		})
		require.Equal(t, http.StatusConflict, rec.Code)
		code, _ := decodeError(t, rec)
		assert.Equal(t, "conflict", code)
	})

	t.Run("weak password maps to 422 with field details", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)

		rec := api.do(t, http.MethodPost, "/register", "", map[string]any{
			"email":      "ada@example.com",
			"password":   "short",
			"first_name": "Ada",
			"last_name":  "Lovelace",
		})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		code, _ := decodeError(t, rec)
		assert.Equal(t, "validation_error", code)
		assert.Contains(t, rec.Body.String(), "password")
	})

	t.Run("login succeeds with valid credentials", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		api.registerUser(t, "ada@example.com", "Tr0ub4dor&Horse")

		rec := api.do(t, http.MethodPost, "/login", "", map[string]any{
			"email":    "ada@example.com",
			"password": "Tr0ub4dor&Horse",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		result := decodeData[*auth.LoginResult](t, rec)
		assert.NotEmpty(t, result.SessionToken)

		// user_id belongs to the two-factor intermediate result only.
		assert.NotContains(t, rec.Body.String(), "user_id")
	})

	t.Run("wrong password maps to 401", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		api.registerUser(t, "ada@example.com", "Tr0ub4dor&Horse")

		rec := api.do(t, http.MethodPost, "/login", "", map[string]any{
			"email":    "ada@example.com",
			"password": "wrong-password-1",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		code, msg := decodeError(t, rec)
		assert.Equal(t, "unauthorized", code)
		assert.Equal(t, auth.ErrInvalidCredentials.Error(), msg)
	})

	t.Run("lockout maps to 429 with Retry-After", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		api.registerUser(t, "ada@example.com", "Tr0ub4dor&Horse")

		for range 5 {
			api.do(t, http.MethodPost, "/login", "", map[string]any{
				"email":    "ada@example.com",
				"password": "wrong-password-1",
			})
		}
		rec := api.do(t, http.MethodPost, "/login", "", map[string]any{
			"email":    "ada@example.com",
			"password": "Tr0ub4dor&Horse",
		})
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	})

	t.Run("malformed body maps to 400", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)

		req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		api.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuthenticatedRoutes(t *testing.T) {
	t.Parallel()

	t.Run("me returns the sanitized user", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		result := api.registerUser(t, "ada@example.com", "Tr0ub4dor&Horse")

		rec := api.do(t, http.MethodGet, "/me", result.SessionToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		user := decodeData[*auth.SanitizedUser](t, rec)
		assert.Equal(t, "ada@example.com", user.Email)
		assert.NotContains(t, rec.Body.String(), "password")
	})

	t.Run("missing token maps to 401", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)

		rec := api.do(t, http.MethodGet, "/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token maps to 401", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)

		rec := api.do(t, http.MethodGet, "/me", "not-a-real-token", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("logout revokes the current session", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		result := api.registerUser(t, "ada@example.com", "Tr0ub4dor&Horse")

		rec := api.do(t, http.MethodPost, "/logout", result.SessionToken, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = api.do(t, http.MethodGet, "/me", result.SessionToken, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("session list marks the caller's session", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		result := api.registerUser(t, "ada@example.com", "Tr0ub4dor&Horse")

		// Second device.
		rec := api.do(t, http.MethodPost, "/login", "", map[string]any{
			"email":    "ada@example.com",
			"password": "Tr0ub4dor&Horse",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = api.do(t, http.MethodGet, "/sessions", result.SessionToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		views := decodeData[[]map[string]any](t, rec)
		require.Len(t, views, 2)
		currents := 0
		for _, v := range views {
			if v["current"] == true {
				currents++
			}
			assert.Equal(t, "Chrome", v["browser"])
		}
		assert.Equal(t, 1, currents)
	})

	t.Run("revoke-all keeps the calling session", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		result := api.registerUser(t, "ada@example.com", "Tr0ub4dor&Horse")

		rec := api.do(t, http.MethodPost, "/login", "", map[string]any{
			"email":    "ada@example.com",
			"password": "Tr0ub4dor&Horse",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		other := decodeData[*auth.LoginResult](t, rec)

		rec = api.do(t, http.MethodDelete, "/sessions", result.SessionToken, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = api.do(t, http.MethodGet, "/me", result.SessionToken, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		rec = api.do(t, http.MethodGet, "/me", other.SessionToken, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("change password rotates the session", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		result := api.registerUser(t, "ada@example.com", "Tr0ub4dor&Horse")

		rec := api.do(t, http.MethodPost, "/password/change", result.SessionToken, map[string]any{
			"old_password": "Tr0ub4dor&Horse",
			"new_password": "N3w-Tr0ub4dor&Horse",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		fresh := decodeData[map[string]any](t, rec)
		freshToken, _ := fresh["session_token"].(string)
		require.NotEmpty(t, freshToken)

		rec = api.do(t, http.MethodGet, "/me", result.SessionToken, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		rec = api.do(t, http.MethodGet, "/me", freshToken, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestTokenFlows(t *testing.T) {
	t.Parallel()

	t.Run("password reset end to end", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		api.registerUser(t, "ada@example.com", "Tr0ub4dor&Horse")

		rec := api.do(t, http.MethodPost, "/password/forgot", "", map[string]any{
			"email": "ada@example.com",
		})
		require.Equal(t, http.StatusAccepted, rec.Code)

		token := api.notifier.lastResetToken()
		require.NotEmpty(t, token)

		rec = api.do(t, http.MethodPost, "/password/reset", "", map[string]any{
			"token":    token,
			"password": "N3w-Tr0ub4dor&Horse",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = api.do(t, http.MethodPost, "/login", "", map[string]any{
			"email":    "ada@example.com",
			"password": "N3w-Tr0ub4dor&Horse",
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("forgot password does not reveal unknown emails", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		api.registerUser(t, "ada@example.com", "Tr0ub4dor&Horse")

		known := api.do(t, http.MethodPost, "/password/forgot", "", map[string]any{
			"email": "ada@example.com",
		})
		unknown := api.do(t, http.MethodPost, "/password/forgot", "", map[string]any{
			"email": "nobody@example.com",
		})
		assert.Equal(t, known.Code, unknown.Code)
		assert.Equal(t, known.Body.String(), unknown.Body.String())
	})

	t.Run("magic link signs in via query token", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		api.registerUser(t, "ada@example.com", "Tr0ub4dor&Horse")

		rec := api.do(t, http.MethodPost, "/magic-link", "", map[string]any{
			"email": "ada@example.com",
		})
		require.Equal(t, http.StatusAccepted, rec.Code)

		token := api.notifier.lastMagicLinkToken()
		require.NotEmpty(t, token)

		rec = api.do(t, http.MethodGet, "/magic-link/verify?token="+token, "", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		result := decodeData[*auth.LoginResult](t, rec)
		assert.NotEmpty(t, result.SessionToken)
		assert.True(t, result.User.EmailVerified)
	})

	t.Run("used magic link maps to 401", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		api.registerUser(t, "ada@example.com", "Tr0ub4dor&Horse")

		rec := api.do(t, http.MethodPost, "/magic-link", "", map[string]any{
			"email": "ada@example.com",
		})
		require.Equal(t, http.StatusAccepted, rec.Code)
		token := api.notifier.lastMagicLinkToken()

		rec = api.do(t, http.MethodGet, "/magic-link/verify?token="+token, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		rec = api.do(t, http.MethodGet, "/magic-link/verify?token="+token, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("verify email via query token", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		result := api.registerUser(t, "ada@example.com", "Tr0ub4dor&Horse")

		rec := api.do(t, http.MethodPost, "/verification/send", result.SessionToken, nil)
		require.Equal(t, http.StatusAccepted, rec.Code)

		api.notifier.mu.Lock()
		token := api.notifier.verificationToken
		api.notifier.mu.Unlock()
		require.NotEmpty(t, token)

		rec = api.do(t, http.MethodGet, "/verification/verify?token="+token, "", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		user := decodeData[*auth.SanitizedUser](t, rec)
		assert.True(t, user.EmailVerified)
	})

	t.Run("missing token query param maps to 400", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)

		rec := api.do(t, http.MethodGet, "/magic-link/verify", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTwoFactorRoutes(t *testing.T) {
	t.Parallel()

	t.Run("setup then enable issues backup codes", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		result := api.registerUser(t, "ada@example.com", "Tr0ub4dor&Horse")

		rec := api.do(t, http.MethodPost, "/2fa/setup", result.SessionToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		setup := decodeData[map[string]any](t, rec)
		secret, _ := setup["secret"].(string)
		require.NotEmpty(t, secret)
		assert.Contains(t, setup["provisioning_uri"], "otpauth://totp/")
	})

	t.Run("enable with wrong code maps to 401", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		result := api.registerUser(t, "ada@example.com", "Tr0ub4dor&Horse")

		rec := api.do(t, http.MethodPost, "/2fa/setup", result.SessionToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = api.do(t, http.MethodPost, "/2fa/enable", result.SessionToken, map[string]any{
			"code": "000000",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("enable without setup maps to 400", func(t *testing.T) {
		t.Parallel()
		api := newTestAPI(t)
		result := api.registerUser(t, "ada@example.com", "Tr0ub4dor&Horse")

		rec := api.do(t, http.MethodPost, "/2fa/enable", result.SessionToken, map[string]any{
			"code": "000000",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPerimeterRateLimit(t *testing.T) {
	t.Parallel()

	newLimitedAPI := func(t *testing.T, capacity int) *testAPI {
		t.Helper()
		store := ratelimiter.NewMemoryStore(time.Minute)
		t.Cleanup(store.Close)
		bucket, err := ratelimiter.NewBucket(store, ratelimiter.Config{
			Capacity:       capacity,
			RefillRate:     capacity,
			RefillInterval: time.Hour,
		})
		require.NoError(t, err)
		return newTestAPI(t, authapi.WithRateLimiter(bucket))
	}

	t.Run("requests over capacity get 429", func(t *testing.T) {
		t.Parallel()
		api := newLimitedAPI(t, 3)

		for i := range 3 {
			rec := api.do(t, http.MethodPost, "/login", "", map[string]any{
				"email":    fmt.Sprintf("u%d@example.com", i),
				"password": "whatever-pass-1",
			})
			assert.NotEqual(t, http.StatusTooManyRequests, rec.Code)
		}

		rec := api.do(t, http.MethodPost, "/login", "", map[string]any{
			"email":    "u@example.com",
			"password": "whatever-pass-1",
		})
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	})

	t.Run("rate limit headers are set", func(t *testing.T) {
		t.Parallel()
		api := newLimitedAPI(t, 10)

		rec := api.do(t, http.MethodPost, "/login", "", map[string]any{
			"email":    "ada@example.com",
			"password": "whatever-pass-1",
		})
		assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))
	})
}
