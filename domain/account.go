package domain

// Account links one external identity to one User. The pair
// (ProviderID, ProviderAccountID) uniquely identifies an Account; UserID
// must reference an existing User.
type Account struct {
	ID                string       `bson:"_id,omitempty"        json:"id,omitempty"`
	UserID            string       `bson:"user_id"              json:"user_id"`
	ProviderID        string       `bson:"provider_id"          json:"provider_id"`
	ProviderType      ProviderType `bson:"provider_type"        json:"provider_type"`
	ProviderAccountID string       `bson:"provider_account_id"  json:"provider_account_id"`
	Token             *Token       `bson:"token,omitempty"      json:"token,omitempty"`
}

// ProviderAccountID addresses an Account by its provider-side identity.
type ProviderAccountID struct {
	ProviderID        string
	ProviderAccountID string
}
