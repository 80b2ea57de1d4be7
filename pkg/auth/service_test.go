package auth_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartbase/authcore/pkg/auth"
	"github.com/cartbase/authcore/pkg/totp"
	"github.com/cartbase/authcore/pkg/validator"
)

func TestService_Register(t *testing.T) {
	t.Parallel()

	t.Run("creates buyer with session and access token", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		result := env.register(t, "buyer@example.com")

		require.NotNil(t, result.User)
		assert.Equal(t, "buyer@example.com", result.User.Email)
		assert.Equal(t, auth.RoleBuyer, result.User.Role)
		assert.False(t, result.User.EmailVerified)
		assert.NotEmpty(t, result.AccessToken)
		assert.NotEmpty(t, result.SessionToken)

		// A verification token was issued and dispatched.
		assert.NotEmpty(t, env.notifier.verificationToken)

		// The session resolves back to the user.
		session, err := env.sessions.Validate(context.Background(), result.SessionToken, testIP, testUserAgent)
		require.NoError(t, err)
		assert.Equal(t, result.User.ID, session.UserID)
	})

	t.Run("seller registration provisions a store", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		result, err := env.svc.Register(context.Background(), auth.RegisterInput{
			Email:     "seller@example.com",
			Password:  testPassword,
			FirstName: "Grace",
			Role:      auth.RoleSeller,
			StoreName: "Grace Gadgets",
		}, testIP, testUserAgent)
		require.NoError(t, err)

		assert.Contains(t, result.Message, "store is ready")
		assert.Equal(t, 1, env.notifier.sellerWelcomes)

		store, err := env.store.GetStoreByOwner(context.Background(), result.User.ID)
		require.NoError(t, err)
		assert.Equal(t, "Grace Gadgets", store.Name)
		assert.Contains(t, store.Slug, "grace-gadgets")
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.register(t, "dup@example.com")

		_, err := env.svc.Register(context.Background(), auth.RegisterInput{
			Email:     "dup@example.com",
			Password:  testPassword,
			FirstName: "Eve",
		}, testIP, testUserAgent)
		assert.ErrorIs(t, err, auth.ErrEmailAlreadyExists)
	})

	t.Run("default policy accepts short passwords", func(t *testing.T) {
		t.Parallel()

		// Composition rules are opt-in; out of the box a seller can sign up
		// with a minimal password and still get the full provisioning flow.
		env := newTestEnv(t)
		result, err := env.svc.Register(context.Background(), auth.RegisterInput{
			Email:     "a@x.com",
			Password:  "Pw1!",
			FirstName: "Ada",
			Role:      auth.RoleSeller,
		}, testIP, testUserAgent)
		require.NoError(t, err)
		require.NotNil(t, result.User)
		assert.Contains(t, result.Message, "store is ready")
		assert.NotEmpty(t, result.SessionToken)

		_, err = env.store.GetStoreByOwner(context.Background(), result.User.ID)
		require.NoError(t, err)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		_, err := env.svc.Register(context.Background(), auth.RegisterInput{
			Email:     "empty@example.com",
			Password:  "",
			FirstName: "Ada",
		}, testIP, testUserAgent)
		assert.Error(t, err)
	})

	t.Run("rejects weak password under configured policy", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, auth.WithPasswordStrength(validator.PasswordStrengthConfig{
			MinLength:      8,
			MaxLength:      128,
			MinCharClasses: 2,
		}))
		_, err := env.svc.Register(context.Background(), auth.RegisterInput{
			Email:     "weak@example.com",
			Password:  "short",
			FirstName: "Ada",
		}, testIP, testUserAgent)
		assert.Error(t, err)
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		_, err := env.svc.Register(context.Background(), auth.RegisterInput{
			Email:     "role@example.com",
			Password:  testPassword,
			FirstName: "Ada",
			Role:      auth.Role("WIZARD"),
		}, testIP, testUserAgent)
		assert.ErrorIs(t, err, auth.ErrInvalidRole)
	})
}

func TestService_Login(t *testing.T) {
	t.Parallel()

	t.Run("succeeds with correct credentials", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.register(t, "login@example.com")

		result, err := env.svc.Login(context.Background(), auth.LoginInput{
			Email:    "login@example.com",
			Password: testPassword,
		}, testIP, testUserAgent)
		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
		assert.NotEmpty(t, result.SessionToken)
		assert.False(t, result.Requires2FA)

		user, err := env.store.GetUserByEmail(context.Background(), "login@example.com")
		require.NoError(t, err)
		require.NotNil(t, user.LastLoginAt)
		assert.Equal(t, testIP, user.LastLoginIP)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.register(t, "wrongpw@example.com")

		_, err := env.svc.Login(context.Background(), auth.LoginInput{
			Email:    "wrongpw@example.com",
			Password: "not-the-password",
		}, testIP, testUserAgent)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown email is unauthorized not notfound", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		_, err := env.svc.Login(context.Background(), auth.LoginInput{
			Email:    "ghost@example.com",
			Password: testPassword,
		}, testIP, testUserAgent)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("sixth attempt within window is rate limited", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.register(t, "locked@example.com")

		for range 5 {
			_, err := env.svc.Login(context.Background(), auth.LoginInput{
				Email:    "locked@example.com",
				Password: "bad-password",
			}, testIP, testUserAgent)
			require.ErrorIs(t, err, auth.ErrInvalidCredentials)
		}

		// Even the correct password is blocked now.
		_, err := env.svc.Login(context.Background(), auth.LoginInput{
			Email:    "locked@example.com",
			Password: testPassword,
		}, testIP, testUserAgent)
		require.ErrorIs(t, err, auth.ErrTooManyAttempts)

		var rle *auth.RateLimitError
		require.ErrorAs(t, err, &rle)
		assert.Positive(t, rle.RetryAfter)
	})

	t.Run("unknown-email failures feed the ip limit", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.register(t, "victim@example.com")

		// Five failures against nonexistent accounts from one IP.
		for range 5 {
			_, err := env.svc.Login(context.Background(), auth.LoginInput{
				Email:    "ghost@example.com",
				Password: "bad",
			}, testIP, testUserAgent)
			require.ErrorIs(t, err, auth.ErrInvalidCredentials)
		}

		// A different email from the same IP is locked out too.
		_, err := env.svc.Login(context.Background(), auth.LoginInput{
			Email:    "victim@example.com",
			Password: testPassword,
		}, testIP, testUserAgent)
		assert.ErrorIs(t, err, auth.ErrTooManyAttempts)
	})

	t.Run("suspended account rejected", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		result := env.register(t, "suspended@example.com")
		require.NoError(t, env.store.SetUserStatus(context.Background(), result.User.ID, true, true))

		_, err := env.svc.Login(context.Background(), auth.LoginInput{
			Email:    "suspended@example.com",
			Password: testPassword,
		}, testIP, testUserAgent)
		assert.ErrorIs(t, err, auth.ErrAccountSuspended)
	})
}

func TestService_LoginTwoFactor(t *testing.T) {
	t.Parallel()

	setup2FA := func(t *testing.T, env *testEnv, email string) (userID string, secret string) {
		t.Helper()
		result := env.register(t, email)

		setupInfo, err := env.twoFactor.Setup(context.Background(), result.User.ID)
		require.NoError(t, err)

		code, err := totp.GenerateCode(setupInfo.Secret)
		require.NoError(t, err)
		codes, err := env.twoFactor.Enable(context.Background(), result.User.ID, code)
		require.NoError(t, err)
		require.Len(t, codes, totp.BackupCodeCount)

		return result.User.ID.String(), setupInfo.Secret
	}

	t.Run("missing code yields intermediate result without session", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		userID, _ := setup2FA(t, env, "2fa@example.com")

		result, err := env.svc.Login(context.Background(), auth.LoginInput{
			Email:    "2fa@example.com",
			Password: testPassword,
		}, testIP, testUserAgent)
		require.NoError(t, err)
		assert.True(t, result.Requires2FA)
		assert.Equal(t, userID, result.UserID.String())
		assert.Empty(t, result.SessionToken)
		assert.Empty(t, result.AccessToken)
		assert.Nil(t, result.User)
	})

	t.Run("valid totp code completes login", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		_, secret := setup2FA(t, env, "2fa-code@example.com")

		code, err := totp.GenerateCode(secret)
		require.NoError(t, err)

		result, err := env.svc.Login(context.Background(), auth.LoginInput{
			Email:    "2fa-code@example.com",
			Password: testPassword,
			Code:     code,
		}, testIP, testUserAgent)
		require.NoError(t, err)
		assert.False(t, result.Requires2FA)
		assert.NotEmpty(t, result.SessionToken)
	})

	t.Run("wrong totp code rejected", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		setup2FA(t, env, "2fa-bad@example.com")

		_, err := env.svc.Login(context.Background(), auth.LoginInput{
			Email:    "2fa-bad@example.com",
			Password: testPassword,
			Code:     "000000",
		}, testIP, testUserAgent)
		assert.ErrorIs(t, err, auth.ErrInvalidTwoFactor)
	})

	t.Run("user_id only serialized on intermediate result", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		_, secret := setup2FA(t, env, "2fa-json@example.com")

		intermediate, err := env.svc.Login(context.Background(), auth.LoginInput{
			Email:    "2fa-json@example.com",
			Password: testPassword,
		}, testIP, testUserAgent)
		require.NoError(t, err)
		body, err := json.Marshal(intermediate)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"user_id"`)

		code, err := totp.GenerateCode(secret)
		require.NoError(t, err)
		completed, err := env.svc.Login(context.Background(), auth.LoginInput{
			Email:    "2fa-json@example.com",
			Password: testPassword,
			Code:     code,
		}, testIP, testUserAgent)
		require.NoError(t, err)
		body, err = json.Marshal(completed)
		require.NoError(t, err)
		assert.NotContains(t, string(body), `"user_id"`)
	})
}

func TestService_ChangePassword(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	result := env.register(t, "change@example.com")
	ctx := context.Background()

	newToken, err := env.svc.ChangePassword(ctx, result.User.ID, testPassword, "N3w&Better-Pass", testIP, testUserAgent)
	require.NoError(t, err)
	require.NotEmpty(t, newToken)

	// The registration session was rotated away.
	_, err = env.sessions.Validate(ctx, result.SessionToken, testIP, testUserAgent)
	assert.ErrorIs(t, err, auth.ErrSessionInvalid)

	// The fresh session works and the new password logs in.
	_, err = env.sessions.Validate(ctx, newToken, testIP, testUserAgent)
	require.NoError(t, err)

	_, err = env.svc.Login(ctx, auth.LoginInput{
		Email:    "change@example.com",
		Password: "N3w&Better-Pass",
	}, testIP, testUserAgent)
	require.NoError(t, err)

	// Old password verifies no longer.
	_, err = env.svc.ChangePassword(ctx, result.User.ID, testPassword, "Anoth3r&Pass", testIP, testUserAgent)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}
