// Package domain holds the authentication data model and the persistence
// adapter contract. All mutation of persisted state goes through an
// Adapter; the flow orchestrator never touches storage directly.
package domain

// ProviderType classifies an identity provider.
type ProviderType string

const (
	ProviderTypeOAuth       ProviderType = "oauth"
	ProviderTypeOIDC        ProviderType = "oidc"
	ProviderTypeEmail       ProviderType = "email"
	ProviderTypeCredentials ProviderType = "credentials"
)

// User is a local account holder. Everything except ID is optional; ID is
// required once the user has been persisted.
type User struct {
	ID       string `bson:"_id,omitempty"      json:"id,omitempty"`
	Username string `bson:"username,omitempty" json:"username,omitempty"`
	Email    string `bson:"email,omitempty"    json:"email,omitempty"`
	Image    string `bson:"image,omitempty"    json:"image,omitempty"`
}
