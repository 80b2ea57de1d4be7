package auth

import "context"

// OAuth provider identifiers.
const OAuthProviderGoogle = "google"

// ProviderProfile is the normalized identity returned by a provider
// adapter after the code exchange.
type ProviderProfile struct {
	ProviderUserID string
	Email          string
	EmailVerified  bool
	FirstName      string
	LastName       string
}

// ProviderAdapter hides provider-specific OAuth mechanics (endpoints, code
// exchange, profile fetch) from the reconciliation service.
type ProviderAdapter interface {
	// ProviderID returns the stable provider identifier.
	ProviderID() string

	// AuthURL builds the provider authorization URL carrying the CSRF
	// state token.
	AuthURL(state string) (string, error)

	// ResolveProfile exchanges an authorization code for a normalized
	// profile. Exchange failures surface as ErrInvalidCode.
	ResolveProfile(ctx context.Context, code string) (ProviderProfile, error)
}
