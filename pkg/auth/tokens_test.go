package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartbase/authcore/pkg/auth"
)

func TestVerificationService(t *testing.T) {
	t.Parallel()

	t.Run("verify flips the flag exactly once", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		result := env.register(t, "verify@example.com")
		token := env.notifier.verificationToken
		require.NotEmpty(t, token)

		user, err := env.verification.Verify(context.Background(), token)
		require.NoError(t, err)
		assert.True(t, user.EmailVerified)
		assert.Equal(t, result.User.ID, user.ID)

		// Second redemption fails as already used.
		_, err = env.verification.Verify(context.Background(), token)
		assert.ErrorIs(t, err, auth.ErrTokenAlreadyUsed)
	})

	t.Run("unknown token is not found", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		_, err := env.verification.Verify(context.Background(), "bogus")
		assert.ErrorIs(t, err, auth.ErrTokenNotFound)
	})

	t.Run("expired token is expired, not used", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		result := env.register(t, "expired@example.com")

		expiring := auth.NewVerificationService(env.store, env.store,
			auth.WithVerificationNotifier(env.notifier),
			auth.WithVerificationTTL(-time.Minute),
		)
		require.NoError(t, expiring.Send(context.Background(), result.User.ID, testIP, testUserAgent))

		_, err := env.verification.Verify(context.Background(), env.notifier.verificationToken)
		assert.ErrorIs(t, err, auth.ErrTokenExpired)
	})

	t.Run("resend supersedes the prior token", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.register(t, "resend@example.com")
		first := env.notifier.verificationToken

		msg, err := env.verification.Resend(context.Background(), "resend@example.com", testIP, testUserAgent)
		require.NoError(t, err)
		assert.Equal(t, auth.MsgVerificationSent, msg)
		second := env.notifier.verificationToken
		require.NotEqual(t, first, second)

		// Only the newest token redeems.
		_, err = env.verification.Verify(context.Background(), first)
		require.ErrorIs(t, err, auth.ErrTokenAlreadyUsed)
		_, err = env.verification.Verify(context.Background(), second)
		require.NoError(t, err)
	})

	t.Run("resend for unknown email returns the same message", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		msg, err := env.verification.Resend(context.Background(), "ghost@example.com", testIP, testUserAgent)
		require.NoError(t, err)
		assert.Equal(t, auth.MsgVerificationSent, msg)
		assert.Empty(t, env.notifier.verificationToken)
	})

	t.Run("resend for verified account reports already verified", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.register(t, "done@example.com")
		_, err := env.verification.Verify(context.Background(), env.notifier.verificationToken)
		require.NoError(t, err)

		_, err = env.verification.Resend(context.Background(), "done@example.com", testIP, testUserAgent)
		assert.ErrorIs(t, err, auth.ErrEmailAlreadyVerified)
	})
}

func TestResetService(t *testing.T) {
	t.Parallel()

	newReset := func(env *testEnv) *auth.ResetService {
		return auth.NewResetService(env.store, env.store, env.sessions, env.hasher,
			auth.WithResetNotifier(env.notifier),
		)
	}

	t.Run("request message identical for unknown email, no token row", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.register(t, "reset@example.com")
		reset := newReset(env)

		known, err := reset.Request(context.Background(), "reset@example.com", testIP, testUserAgent)
		require.NoError(t, err)
		knownToken := env.notifier.resetToken
		require.NotEmpty(t, knownToken)

		env.notifier.resetToken = ""
		unknown, err := reset.Request(context.Background(), "ghost@example.com", testIP, testUserAgent)
		require.NoError(t, err)

		assert.Equal(t, known, unknown)
		assert.Empty(t, env.notifier.resetToken)
	})

	t.Run("reset overwrites password and revokes sessions", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		result := env.register(t, "resetpw@example.com")
		reset := newReset(env)
		ctx := context.Background()

		_, err := reset.Request(ctx, "resetpw@example.com", testIP, testUserAgent)
		require.NoError(t, err)

		require.NoError(t, reset.Reset(ctx, env.notifier.resetToken, "Fr3sh&Password"))

		// Old session gone, old password dead, new password works.
		_, err = env.sessions.Validate(ctx, result.SessionToken, testIP, testUserAgent)
		assert.ErrorIs(t, err, auth.ErrSessionInvalid)

		_, err = env.svc.Login(ctx, auth.LoginInput{Email: "resetpw@example.com", Password: testPassword}, testIP, testUserAgent)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

		_, err = env.svc.Login(ctx, auth.LoginInput{Email: "resetpw@example.com", Password: "Fr3sh&Password"}, testIP, testUserAgent)
		assert.NoError(t, err)
	})

	t.Run("token is single use", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.register(t, "once@example.com")
		reset := newReset(env)
		ctx := context.Background()

		_, err := reset.Request(ctx, "once@example.com", testIP, testUserAgent)
		require.NoError(t, err)
		token := env.notifier.resetToken

		require.NoError(t, reset.Reset(ctx, token, "Fr3sh&Password"))
		err = reset.Reset(ctx, token, "An0ther&Password")
		assert.ErrorIs(t, err, auth.ErrTokenAlreadyUsed)
	})
}

func TestMagicLinkService(t *testing.T) {
	t.Parallel()

	newMagic := func(env *testEnv, opts ...auth.MagicLinkOption) *auth.MagicLinkService {
		opts = append([]auth.MagicLinkOption{auth.WithMagicLinkNotifier(env.notifier)}, opts...)
		return auth.NewMagicLinkService(env.store, env.store, env.sessions, env.issuer, opts...)
	}

	t.Run("verify completes a remembered login and verifies email", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.register(t, "magic@example.com")
		magic := newMagic(env)
		ctx := context.Background()

		msg, err := magic.Request(ctx, "magic@example.com", testIP, testUserAgent)
		require.NoError(t, err)
		assert.Equal(t, auth.MsgMagicLinkSent, msg)
		require.NotEmpty(t, env.notifier.magicLinkToken)

		result, err := magic.Verify(ctx, env.notifier.magicLinkToken, testIP, testUserAgent)
		require.NoError(t, err)
		assert.True(t, result.User.EmailVerified)
		require.NotEmpty(t, result.SessionToken)
		require.NotEmpty(t, result.AccessToken)

		// Mailbox-proven logins get the extended session lifetime.
		session, err := env.sessions.Validate(ctx, result.SessionToken, testIP, testUserAgent)
		require.NoError(t, err)
		assert.Greater(t, time.Until(session.ExpiresAt), auth.DefaultSessionTTL)
	})

	t.Run("request for unknown email returns the same message", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		magic := newMagic(env)

		msg, err := magic.Request(context.Background(), "ghost@example.com", testIP, testUserAgent)
		require.NoError(t, err)
		assert.Equal(t, auth.MsgMagicLinkSent, msg)
		assert.Empty(t, env.notifier.magicLinkToken)
	})

	t.Run("link is single use", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.register(t, "magic-once@example.com")
		magic := newMagic(env)
		ctx := context.Background()

		_, err := magic.Request(ctx, "magic-once@example.com", testIP, testUserAgent)
		require.NoError(t, err)
		token := env.notifier.magicLinkToken

		_, err = magic.Verify(ctx, token, testIP, testUserAgent)
		require.NoError(t, err)
		_, err = magic.Verify(ctx, token, testIP, testUserAgent)
		assert.ErrorIs(t, err, auth.ErrTokenAlreadyUsed)
	})

	t.Run("expired link is expired", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.register(t, "magic-exp@example.com")
		magic := newMagic(env, auth.WithMagicLinkTTL(-time.Minute))
		ctx := context.Background()

		_, err := magic.Request(ctx, "magic-exp@example.com", testIP, testUserAgent)
		require.NoError(t, err)

		_, err = magic.Verify(ctx, env.notifier.magicLinkToken, testIP, testUserAgent)
		assert.ErrorIs(t, err, auth.ErrTokenExpired)
	})

	t.Run("suspended account gets no link", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		result := env.register(t, "magic-susp@example.com")
		require.NoError(t, env.store.SetUserStatus(context.Background(), result.User.ID, true, true))
		magic := newMagic(env)

		env.notifier.magicLinkToken = ""
		msg, err := magic.Request(context.Background(), "magic-susp@example.com", testIP, testUserAgent)
		require.NoError(t, err)
		assert.Equal(t, auth.MsgMagicLinkSent, msg)
		assert.Empty(t, env.notifier.magicLinkToken)
	})
}
