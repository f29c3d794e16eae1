package domain

import "time"

// Token is the credential set issued by a provider's token endpoint. It is
// owned by its Account and transient otherwise: held only for the duration
// of one callback handling.
//
// Expiry is stored as an absolute instant. The wire and storage
// representations may use relative seconds; conversion happens only at that
// boundary, via ExpiresIn and WithExpiresIn.
type Token struct {
	AccessToken  string            `bson:"access_token,omitempty"  json:"access_token,omitempty"`
	TokenType    string            `bson:"token_type,omitempty"    json:"token_type,omitempty"`
	RefreshToken string            `bson:"refresh_token,omitempty" json:"refresh_token,omitempty"`
	ExpiresAt    time.Time         `bson:"expires_at,omitempty"    json:"expires_at,omitempty"`
	Scope        string            `bson:"scope,omitempty"         json:"scope,omitempty"`
	IDToken      string            `bson:"id_token,omitempty"      json:"id_token,omitempty"`
	Extra        map[string]string `bson:"extra,omitempty"         json:"extra,omitempty"`
}

// ExpiresIn returns the remaining token lifetime in whole seconds, clamped
// at zero. An expired token never reports a negative lifetime.
func (t Token) ExpiresIn() int64 {
	if t.ExpiresAt.IsZero() {
		return 0
	}
	remaining := int64(time.Until(t.ExpiresAt).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// WithExpiresIn sets the absolute expiry from a relative-seconds value as
// captured now. Zero or negative seconds leave the expiry unset.
func (t Token) WithExpiresIn(seconds int64) Token {
	if seconds > 0 {
		t.ExpiresAt = time.Now().Add(time.Duration(seconds) * time.Second)
	}
	return t
}
