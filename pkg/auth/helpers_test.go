package auth_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cartbase/authcore/pkg/auth"
	"github.com/cartbase/authcore/pkg/jwt"
	"github.com/cartbase/authcore/pkg/password"
	"github.com/cartbase/authcore/storage/memory"
)

const (
	testIP        = "203.0.113.10"
	testUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
	testPassword  = "Tr0ub4dor&Horse"
)

// captureNotifier records notifications for assertions. All methods are
// safe for concurrent use.
type captureNotifier struct {
	mu                sync.Mutex
	verificationToken string
	resetToken        string
	magicLinkToken    string
	sellerWelcomes    int
	welcomes          int
	twoFactorEnabled  int
	accountLinked     int
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

func (n *captureNotifier) Welcome(_ context.Context, _, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomes++
}

func (n *captureNotifier) SellerWelcome(_ context.Context, _, _, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sellerWelcomes++
}

func (n *captureNotifier) TwoFactorEnabled(_ context.Context, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.twoFactorEnabled++
}

func (n *captureNotifier) AccountLinked(_ context.Context, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accountLinked++
}

type testEnv struct {
	store        *memory.Storage
	notifier     *captureNotifier
	hasher       *password.Hasher
	issuer       *jwt.Issuer
	sessions     *auth.SessionService
	attempts     *auth.AttemptService
	twoFactor    *auth.TwoFactorService
	verification *auth.VerificationService
	svc          *auth.Service
}

func newTestEnv(t *testing.T, opts ...auth.Option) *testEnv {
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

	base := []auth.Option{
		auth.WithNotifier(notifier),
		auth.WithRegistrationHook(auth.RoleSeller, auth.NewSellerProvisioner(store, auth.WithProvisionerNotifier(notifier))),
	}
	svc := auth.NewService(store, attempts, sessions, twoFactor, verification, hasher, issuer, append(base, opts...)...)

	return &testEnv{
		store:        store,
		notifier:     notifier,
		hasher:       hasher,
		issuer:       issuer,
		sessions:     sessions,
		attempts:     attempts,
		twoFactor:    twoFactor,
		verification: verification,
		svc:          svc,
	}
}

func (e *testEnv) register(t *testing.T, email string) *auth.LoginResult {
	t.Helper()
	result, err := e.svc.Register(context.Background(), auth.RegisterInput{
		Email:     email,
		Password:  testPassword,
		FirstName: "Ada",
		LastName:  "Lovelace",
	}, testIP, testUserAgent)
	require.NoError(t, err)
	return result
}
