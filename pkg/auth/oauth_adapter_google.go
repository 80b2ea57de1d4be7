package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleOAuthConfig holds configuration for the Google OAuth provider.
type GoogleOAuthConfig struct {
	ClientID     string        `env:"GOOGLE_OAUTH_CLIENT_ID,required"`
	ClientSecret string        `env:"GOOGLE_OAUTH_CLIENT_SECRET,required"`
	RedirectURL  string        `env:"GOOGLE_OAUTH_REDIRECT_URL,required"`
	Scopes       []string      `env:"GOOGLE_OAUTH_SCOPES" envSeparator:"," envDefault:"https://www.googleapis.com/auth/userinfo.email,https://www.googleapis.com/auth/userinfo.profile"`
	StateTTL     time.Duration `env:"GOOGLE_OAUTH_STATE_TTL" envDefault:"10m"`
}

type googleAdapter struct {
	conf       *oauth2.Config
	httpClient *http.Client
}

// NewGoogleAdapter creates a Google OAuth provider adapter.
func NewGoogleAdapter(cfg GoogleOAuthConfig) ProviderAdapter {
	return &googleAdapter{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     google.Endpoint,
		},
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *googleAdapter) ProviderID() string {
	return OAuthProviderGoogle
}

func (a *googleAdapter) AuthURL(state string) (string, error) {
	return a.conf.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// ResolveProfile exchanges the authorization code and fetches the user's
// Google profile.
func (a *googleAdapter) ResolveProfile(ctx context.Context, code string) (ProviderProfile, error) {
	tok, err := a.conf.Exchange(ctx, code)
	if err != nil {
		// Exchange failures look alike to the core flow.
		return ProviderProfile{}, ErrInvalidCode
	}

	u, err := a.fetchGoogleUser(ctx, tok.AccessToken)
	if err != nil {
		return ProviderProfile{}, fmt.Errorf("fetch google user: %w", err)
	}

	first, last := u.GivenName, u.FamilyName
	if first == "" && u.Name != "" {
		first, last, _ = strings.Cut(u.Name, " ")
	}

	return ProviderProfile{
		ProviderUserID: u.ID,
		Email:          u.Email,
		EmailVerified:  u.VerifiedEmail,
		FirstName:      first,
		LastName:       last,
	}, nil
}

func (a *googleAdapter) fetchGoogleUser(ctx context.Context, accessToken string) (*gUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://www.googleapis.com/oauth2/v2/userinfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google api returned status %d", resp.StatusCode)
	}

	var user gUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

type gUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

var _ ProviderAdapter = (*googleAdapter)(nil)
