// Package providers defines the identity-provider capability set and ships
// descriptors for a few well-known OAuth2 providers. A provider is
// polymorphic over capabilities: every provider has an identity, OAuth2
// providers additionally expose endpoints, credentials and a profile
// mapper. Capability queries are plain interface assertions; there is no
// reflection.
package providers

import (
	"errors"
	"net/url"
	"sort"
	"strings"

	"github.com/pilab-dev/authcore/domain"
)

// ErrMisconfigured reports a provider constructed without its required
// client credentials.
var ErrMisconfigured = errors.New("provider is misconfigured")

// Endpoint is a provider endpoint: a URL plus optional extra query
// parameters (for example a scope on the authorization endpoint).
type Endpoint struct {
	URL    string
	Params url.Values
}

// String renders the endpoint with its extra parameters appended.
func (e Endpoint) String() string {
	if len(e.Params) == 0 {
		return e.URL
	}
	sep := "?"
	if strings.Contains(e.URL, "?") {
		sep = "&"
	}
	return e.URL + sep + e.Params.Encode()
}

// Provider is the identity capability every provider carries.
type Provider interface {
	// ID is the stable identifier used in routes ("google", "github").
	ID() string
	// Name is the human-readable display name.
	Name() string
	Type() domain.ProviderType
}

// OAuth2Provider is the endpoint + profile-mapping capability of OAuth(2)
// providers.
type OAuth2Provider interface {
	Provider

	ClientID() string
	ClientSecret() string

	AuthEndpoint() Endpoint
	TokenEndpoint() Endpoint
	ProfileEndpoint() Endpoint

	// MapProfile translates provider claims into a candidate local user.
	// The mapper assigns a fresh local id; it never reuses the provider's
	// subject as the local user id.
	MapProfile(profile domain.Profile) *domain.User
}

// AsOAuth2 queries the OAuth2 capability of a provider.
func AsOAuth2(p Provider) (OAuth2Provider, bool) {
	o, ok := p.(OAuth2Provider)
	return o, ok
}

// Descriptor is the public listing shape of a registered provider.
type Descriptor struct {
	ID   string              `json:"id"`
	Name string              `json:"name"`
	Type domain.ProviderType `json:"type"`
}

// Registry is an ordered, immutable-after-construction provider set. It is
// safe for concurrent reads.
type Registry struct {
	order []Provider
	byID  map[string]Provider
}

// NewRegistry builds a registry from an ordered provider list. A duplicate
// id keeps the earlier registration.
func NewRegistry(ps ...Provider) *Registry {
	r := &Registry{byID: make(map[string]Provider, len(ps))}
	for _, p := range ps {
		if _, taken := r.byID[p.ID()]; taken {
			continue
		}
		r.byID[p.ID()] = p
		r.order = append(r.order, p)
	}
	return r
}

// Get looks up a provider by id.
func (r *Registry) Get(id string) (Provider, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// List returns the providers in registration order.
func (r *Registry) List() []Provider {
	out := make([]Provider, len(r.order))
	copy(out, r.order)
	return out
}

// Descriptors returns the listing shapes in registration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, p := range r.order {
		out = append(out, Descriptor{ID: p.ID(), Name: p.Name(), Type: p.Type()})
	}
	return out
}

// IDs returns the registered ids, sorted, for logging.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
