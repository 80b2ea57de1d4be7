package authapi

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cartbase/authcore/pkg/auth"
	"github.com/cartbase/authcore/pkg/ratelimiter"
	"github.com/cartbase/authcore/pkg/requestid"
)

// Deps collects the required collaborators for the API. OAuth is the only
// optional service; its routes are simply not mounted when it is nil.
type Deps struct {
	Service      *auth.Service
	Sessions     *auth.SessionService
	TwoFactor    *auth.TwoFactorService
	Verification *auth.VerificationService
	Reset        *auth.ResetService
	MagicLink    *auth.MagicLinkService
	OAuth        *auth.OAuthService
	Users        auth.UserStorage
}

// API is the JSON HTTP surface over the auth services.
type API struct {
	svc          *auth.Service
	sessions     *auth.SessionService
	twoFactor    *auth.TwoFactorService
	verification *auth.VerificationService
	reset        *auth.ResetService
	magicLink    *auth.MagicLinkService
	oauth        *auth.OAuthService
	users        auth.UserStorage
	limiter      *ratelimiter.Bucket
	log          *slog.Logger
}

// Option configures the API during construction.
type Option func(*API)

// WithLogger sets a custom logger for the API.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		a.log = l
	}
}

// WithRateLimiter enables the perimeter per-IP token bucket. Without it
// only the attempt-ledger lockout inside the login flow applies.
func WithRateLimiter(b *ratelimiter.Bucket) Option {
	return func(a *API) {
		a.limiter = b
	}
}

// New creates the API over the given services.
func New(deps Deps, opts ...Option) *API {
	a := &API{
		svc:          deps.Service,
		sessions:     deps.Sessions,
		twoFactor:    deps.TwoFactor,
		verification: deps.Verification,
		reset:        deps.Reset,
		magicLink:    deps.MagicLink,
		oauth:        deps.OAuth,
		users:        deps.Users,
		log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Router builds the full route tree. Mount it under /auth or at the root
// of a dedicated auth service.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(middleware.Recoverer)
	if a.limiter != nil {
		r.Use(a.throttle)
	}

	r.Post("/register", a.handleRegister)
	r.Post("/login", a.handleLogin)

	r.Post("/magic-link", a.handleMagicLinkRequest)
	r.Get("/magic-link/verify", a.handleMagicLinkVerify)

	r.Post("/verification/resend", a.handleVerificationResend)
	r.Get("/verification/verify", a.handleVerificationVerify)

	r.Post("/password/forgot", a.handlePasswordForgot)
	r.Post("/password/reset", a.handlePasswordReset)

	if a.oauth != nil {
		r.Get("/oauth/google", a.handleOAuthURL)
		r.Get("/oauth/google/callback", a.handleOAuthCallback)
	}

	r.Group(func(r chi.Router) {
		r.Use(a.requireSession)

		r.Get("/me", a.handleMe)
		r.Post("/logout", a.handleLogout)
		r.Post("/password/change", a.handlePasswordChange)
		r.Post("/verification/send", a.handleVerificationSend)

		r.Get("/sessions", a.handleSessionList)
		r.Delete("/sessions", a.handleSessionRevokeAll)
		r.Delete("/sessions/{id}", a.handleSessionRevoke)

		r.Post("/2fa/setup", a.handleTwoFactorSetup)
		r.Post("/2fa/enable", a.handleTwoFactorEnable)
		r.Post("/2fa/verify", a.handleTwoFactorVerify)
		r.Post("/2fa/disable", a.handleTwoFactorDisable)
		r.Post("/2fa/backup-codes", a.handleBackupCodeRegenerate)

		if a.oauth != nil {
			r.Post("/oauth/google/link", a.handleOAuthLink)
			r.Delete("/oauth/google", a.handleOAuthUnlink)
		}
	})

	return r
}

// identity is the authenticated caller pulled out of the request context
// by the session middleware.
func identity(r *http.Request) (*auth.User, *auth.Session) {
	user, _ := auth.UserFromContext(r.Context())
	session, _ := auth.SessionFromContext(r.Context())
	return user, session
}
