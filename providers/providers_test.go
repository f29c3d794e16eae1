package providers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilab-dev/authcore/domain"
	"github.com/pilab-dev/authcore/providers"
)

func newGoogle(t *testing.T) *providers.GoogleProvider {
	t.Helper()
	p, err := providers.NewGoogle(providers.GoogleConfig{ClientID: "cid", ClientSecret: "secret"})
	require.NoError(t, err)
	return p
}

func TestNewGoogleRequiresCredentials(t *testing.T) {
	_, err := providers.NewGoogle(providers.GoogleConfig{ClientID: "cid"})
	assert.ErrorIs(t, err, providers.ErrMisconfigured)

	_, err = providers.NewGoogle(providers.GoogleConfig{ClientSecret: "secret"})
	assert.ErrorIs(t, err, providers.ErrMisconfigured)
}

func TestGoogleEndpoints(t *testing.T) {
	p := newGoogle(t)

	assert.Equal(t, "google", p.ID())
	assert.Equal(t, domain.ProviderTypeOAuth, p.Type())
	assert.Contains(t, p.AuthEndpoint().String(), "accounts.google.com")
	assert.Contains(t, p.AuthEndpoint().String(), "scope=openid+email+profile")
	assert.Equal(t, providers.GoogleTokenURL, p.TokenEndpoint().String())
}

func TestMapProfileAssignsFreshLocalID(t *testing.T) {
	p := newGoogle(t)
	profile := domain.Profile{Sub: "google-sub-1", GivenName: "Ada", Email: "ada@example.com", Picture: "pic"}

	u1 := p.MapProfile(profile)
	u2 := p.MapProfile(profile)

	require.NotNil(t, u1)
	assert.NotEmpty(t, u1.ID)
	assert.NotEqual(t, profile.Sub, u1.ID, "local id must not reuse the provider subject")
	assert.NotEqual(t, u1.ID, u2.ID, "each mapping mints a fresh id")
	assert.Equal(t, "Ada", u1.Username)
	assert.Equal(t, "ada@example.com", u1.Email)
}

func TestGitHubMapProfileUsesExtensionClaims(t *testing.T) {
	p, err := providers.NewGitHub(providers.GitHubConfig{ClientID: "cid", ClientSecret: "sec"})
	require.NoError(t, err)

	u := p.MapProfile(domain.Profile{
		ID:    "583231",
		Email: "octo@example.com",
		Extra: map[string]any{"login": "octocat", "avatar_url": "https://avatars.example.com/octocat"},
	})
	assert.Equal(t, "octocat", u.Username)
	assert.Equal(t, "https://avatars.example.com/octocat", u.Image)
}

func TestDiscordAvatarMapping(t *testing.T) {
	p, err := providers.NewDiscord(providers.DiscordConfig{ClientID: "cid", ClientSecret: "sec"})
	require.NoError(t, err)

	withAvatar := p.MapProfile(domain.Profile{
		ID:    "42",
		Extra: map[string]any{"username": "gamer", "avatar": "abc"},
	})
	assert.Equal(t, "https://cdn.discordapp.com/avatars/42/abc.png", withAvatar.Image)

	animated := p.MapProfile(domain.Profile{
		ID:    "42",
		Extra: map[string]any{"avatar": "a_xyz"},
	})
	assert.Equal(t, "https://cdn.discordapp.com/avatars/42/a_xyz.gif", animated.Image)

	bare := p.MapProfile(domain.Profile{ID: "42"})
	assert.Equal(t, "https://cdn.discordapp.com/embed/avatars/0.png", bare.Image)
}

func TestRegistry(t *testing.T) {
	g := newGoogle(t)
	gh, err := providers.NewGitHub(providers.GitHubConfig{ClientID: "cid", ClientSecret: "sec"})
	require.NoError(t, err)

	r := providers.NewRegistry(g, gh)

	got, ok := r.Get("github")
	require.True(t, ok)
	assert.Equal(t, "GitHub", got.Name())

	_, ok = r.Get("nope")
	assert.False(t, ok)

	descs := r.Descriptors()
	require.Len(t, descs, 2)
	assert.Equal(t, providers.Descriptor{ID: "google", Name: "Google", Type: domain.ProviderTypeOAuth}, descs[0])

	// Capability query is a plain interface assertion.
	o, ok := providers.AsOAuth2(got)
	require.True(t, ok)
	assert.Equal(t, "cid", o.ClientID())
}
