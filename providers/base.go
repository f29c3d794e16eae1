package providers

import "github.com/pilab-dev/authcore/domain"

// base carries the fields shared by the shipped OAuth2 providers. Concrete
// providers embed it and add their profile mapping.
type base struct {
	id           string
	name         string
	providerType domain.ProviderType
	clientID     string
	clientSecret string

	authEndpoint    Endpoint
	tokenEndpoint   Endpoint
	profileEndpoint Endpoint
}

func (b base) ID() string { return b.id }
func (b base) Name() string { return b.name }
func (b base) Type() domain.ProviderType { return b.providerType }
func (b base) ClientID() string { return b.clientID }
func (b base) ClientSecret() string { return b.clientSecret }
func (b base) AuthEndpoint() Endpoint { return b.authEndpoint }
func (b base) TokenEndpoint() Endpoint { return b.tokenEndpoint }
func (b base) ProfileEndpoint() Endpoint { return b.profileEndpoint }
