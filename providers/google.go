package providers

import (
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/pilab-dev/authcore/domain"
)

// Google's well-known OAuth2 endpoints.
var (
	GoogleAuthURL    = "https://accounts.google.com/o/oauth2/v2/auth"
	GoogleTokenURL   = "https://oauth2.googleapis.com/token"
	GoogleProfileURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// GoogleConfig configures a Google provider. Credentials are passed in
// explicitly; environment lookup belongs in the embedder's bootstrap.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	// Scopes defaults to "openid email profile".
	Scopes []string
}

// GoogleProvider signs users in with Google.
type GoogleProvider struct {
	base
}

// NewGoogle builds a Google provider from explicit configuration.
func NewGoogle(cfg GoogleConfig) (*GoogleProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMisconfigured
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}
	return &GoogleProvider{base: base{
		id:           "google",
		name:         "Google",
		providerType: domain.ProviderTypeOAuth,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		authEndpoint: Endpoint{
			URL:    GoogleAuthURL,
			Params: url.Values{"scope": {strings.Join(scopes, " ")}},
		},
		tokenEndpoint:   Endpoint{URL: GoogleTokenURL},
		profileEndpoint: Endpoint{URL: GoogleProfileURL},
	}}, nil
}

// MapProfile maps Google's OIDC claims onto a local user with a fresh id.
func (g *GoogleProvider) MapProfile(profile domain.Profile) *domain.User {
	username := profile.GivenName
	if username == "" {
		username = profile.Name
	}
	return &domain.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    profile.Email,
		Image:    profile.Picture,
	}
}
