package domain

import (
	"encoding/json"
	"strconv"
)

// Profile carries the claims returned by a provider's userinfo endpoint,
// normalized to the OpenID Connect standard claim names. No field is
// guaranteed to be present. Claims outside the standard set land in Extra
// so provider-specific mappers can reach them.
type Profile struct {
	ID                string          `json:"id,omitempty"`
	Sub               string          `json:"sub,omitempty"`
	Name              string          `json:"name,omitempty"`
	GivenName         string          `json:"given_name,omitempty"`
	FamilyName        string          `json:"family_name,omitempty"`
	MiddleName        string          `json:"middle_name,omitempty"`
	Nickname          string          `json:"nickname,omitempty"`
	PreferredUsername string          `json:"preferred_username,omitempty"`
	Picture           string          `json:"picture,omitempty"`
	Website           string          `json:"website,omitempty"`
	Email             string          `json:"email,omitempty"`
	EmailVerified     bool            `json:"email_verified,omitempty"`
	Locale            string          `json:"locale,omitempty"`
	PhoneNumber       string          `json:"phone_number,omitempty"`
	Address           *ProfileAddress `json:"address,omitempty"`

	// Extra holds every claim that did not map onto a standard field.
	Extra map[string]any `json:"-"`
}

// ProfileAddress is the OIDC address claim.
type ProfileAddress struct {
	Formatted     string `json:"formatted,omitempty"`
	StreetAddress string `json:"street_address,omitempty"`
	Locality      string `json:"locality,omitempty"`
	Region        string `json:"region,omitempty"`
	PostalCode    string `json:"postal_code,omitempty"`
}

// Subject returns the provider-side identity of the profile: the sub claim,
// falling back to id for providers that only expose the latter.
func (p Profile) Subject() string {
	if p.Sub != "" {
		return p.Sub
	}
	return p.ID
}

// ExtraString returns the named extension claim as a string, or "" when the
// claim is absent or not a string.
func (p Profile) ExtraString(key string) string {
	s, _ := p.Extra[key].(string)
	return s
}

// UnmarshalJSON decodes the standard claims into their fields and collects
// everything else into Extra. It tolerates ids sent as numbers, which
// several providers do.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = Profile{
		ID:                claimString(raw, "id"),
		Sub:               claimString(raw, "sub"),
		Name:              claimString(raw, "name"),
		GivenName:         claimString(raw, "given_name"),
		FamilyName:        claimString(raw, "family_name"),
		MiddleName:        claimString(raw, "middle_name"),
		Nickname:          claimString(raw, "nickname"),
		PreferredUsername: claimString(raw, "preferred_username"),
		Picture:           claimString(raw, "picture"),
		Website:           claimString(raw, "website"),
		Email:             claimString(raw, "email"),
		EmailVerified:     claimBool(raw, "email_verified"),
		Locale:            claimString(raw, "locale"),
		PhoneNumber:       claimString(raw, "phone_number"),
	}

	if addr, ok := raw["address"].(map[string]any); ok {
		p.Address = &ProfileAddress{
			Formatted:     claimString(addr, "formatted"),
			StreetAddress: claimString(addr, "street_address"),
			Locality:      claimString(addr, "locality"),
			Region:        claimString(addr, "region"),
			PostalCode:    claimString(addr, "postal_code"),
		}
	}

	for key, val := range raw {
		if _, known := standardClaims[key]; known {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		p.Extra[key] = val
	}
	return nil
}

// MarshalJSON re-serializes the profile with the extension claims inlined
// alongside the standard ones.
func (p Profile) MarshalJSON() ([]byte, error) {
	type alias Profile
	base, err := json.Marshal(alias(p))
	if err != nil {
		return nil, err
	}
	if len(p.Extra) == 0 {
		return base, nil
	}
	var merged map[string]any
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for key, val := range p.Extra {
		if _, taken := merged[key]; !taken {
			merged[key] = val
		}
	}
	return json.Marshal(merged)
}

var standardClaims = map[string]struct{}{
	"id": {}, "sub": {}, "name": {}, "given_name": {}, "family_name": {},
	"middle_name": {}, "nickname": {}, "preferred_username": {}, "picture": {},
	"website": {}, "email": {}, "email_verified": {}, "locale": {},
	"phone_number": {}, "address": {},
}

func claimString(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return v
	case float64:
		// Integral ids arrive as JSON numbers; render them losslessly.
		return strconv.FormatInt(int64(v), 10)
	default:
		return ""
	}
}

func claimBool(raw map[string]any, key string) bool {
	switch v := raw[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}
