package providers

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/pilab-dev/authcore/domain"
)

// Discord's OAuth2 endpoints.
var (
	DiscordAuthURL    = "https://discord.com/oauth2/authorize"
	DiscordTokenURL   = "https://discord.com/api/oauth2/token"
	DiscordProfileURL = "https://discord.com/api/users/@me"
)

// DiscordConfig configures a Discord provider.
type DiscordConfig struct {
	ClientID     string
	ClientSecret string
	// Scopes defaults to "identify email".
	Scopes []string
}

// DiscordProvider signs users in with Discord.
type DiscordProvider struct {
	base
}

// NewDiscord builds a Discord provider from explicit configuration.
func NewDiscord(cfg DiscordConfig) (*DiscordProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMisconfigured
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"identify", "email"}
	}
	return &DiscordProvider{base: base{
		id:           "discord",
		name:         "Discord",
		providerType: domain.ProviderTypeOAuth,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		authEndpoint: Endpoint{
			URL:    DiscordAuthURL,
			Params: url.Values{"scope": {strings.Join(scopes, " ")}},
		},
		tokenEndpoint:   Endpoint{URL: DiscordTokenURL},
		profileEndpoint: Endpoint{URL: DiscordProfileURL},
	}}, nil
}

// MapProfile maps Discord's user shape onto a local user with a fresh id.
// Discord sends id, username and avatar hash as non-standard claims.
func (d *DiscordProvider) MapProfile(profile domain.Profile) *domain.User {
	return &domain.User{
		ID:       uuid.NewString(),
		Username: profile.ExtraString("username"),
		Email:    profile.Email,
		Image:    discordAvatarURL(profile),
	}
}

// discordAvatarURL builds the CDN URL for the user's avatar, or the default
// embed avatar when the user has none.
func discordAvatarURL(profile domain.Profile) string {
	id := profile.Subject()
	avatar := profile.ExtraString("avatar")
	if id == "" {
		return ""
	}
	if avatar == "" {
		return "https://cdn.discordapp.com/embed/avatars/0.png"
	}
	ext := "png"
	if strings.HasPrefix(avatar, "a_") {
		ext = "gif"
	}
	return fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.%s", id, avatar, ext)
}
