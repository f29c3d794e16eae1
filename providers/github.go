package providers

import (
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/pilab-dev/authcore/domain"
)

// GitHub's OAuth2 endpoints. GitHub is plain OAuth2, not OIDC; its profile
// shape lives almost entirely in the extension claims.
var (
	GitHubAuthURL    = "https://github.com/login/oauth/authorize"
	GitHubTokenURL   = "https://github.com/login/oauth/access_token"
	GitHubProfileURL = "https://api.github.com/user"
)

// GitHubConfig configures a GitHub provider.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	// Scopes defaults to "read:user user:email".
	Scopes []string
}

// GitHubProvider signs users in with GitHub.
type GitHubProvider struct {
	base
}

// NewGitHub builds a GitHub provider from explicit configuration.
func NewGitHub(cfg GitHubConfig) (*GitHubProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMisconfigured
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"read:user", "user:email"}
	}
	return &GitHubProvider{base: base{
		id:           "github",
		name:         "GitHub",
		providerType: domain.ProviderTypeOAuth,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		authEndpoint: Endpoint{
			URL:    GitHubAuthURL,
			Params: url.Values{"scope": {strings.Join(scopes, " ")}},
		},
		tokenEndpoint:   Endpoint{URL: GitHubTokenURL},
		profileEndpoint: Endpoint{URL: GitHubProfileURL},
	}}, nil
}

// MapProfile maps GitHub's user shape onto a local user with a fresh id.
// GitHub sends the login and avatar as non-standard claims.
func (g *GitHubProvider) MapProfile(profile domain.Profile) *domain.User {
	username := profile.ExtraString("login")
	if username == "" {
		username = profile.Name
	}
	return &domain.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    profile.Email,
		Image:    profile.ExtraString("avatar_url"),
	}
}
