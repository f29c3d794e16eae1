package domain

import "time"

// Session is a server-side bearer credential referenced by a cookie. A user
// may hold several concurrent sessions (multi-device); nothing forbids it.
type Session struct {
	Token     string    `bson:"_id"        json:"token"`
	UserID    string    `bson:"user_id"    json:"user_id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
}

// ExpiresIn returns the remaining session lifetime in whole seconds,
// clamped at zero.
func (s Session) ExpiresIn() int64 {
	remaining := int64(time.Until(s.ExpiresAt).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// SessionUser is the joined result of a session lookup.
type SessionUser struct {
	Session Session
	User    User
}

// VerificationToken is a single-use token for email verification flows,
// addressed by the (Email, Token) pair. Use is irreversible consumption.
type VerificationToken struct {
	Email     string    `bson:"email"      json:"email"`
	Token     string    `bson:"token"      json:"token"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
}
