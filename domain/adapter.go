package domain

import (
	"context"
	"errors"
)

// Sentinel errors shared by adapter implementations.
var (
	// ErrNotFound reports that an update targeted a row that does not
	// exist. Plain lookups do NOT return it; a lookup miss is a nil
	// result with a nil error.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate reports a uniqueness-constraint violation: a session
	// token, a (provider_id, provider_account_id) pair or a verification
	// token that already exists. Conforming adapters reject rather than
	// overwrite.
	ErrDuplicate = errors.New("already exists")
)

// CreateSessionOptions describes the session to create. ExpiresIn is
// relative seconds at call time; adapters convert it to an absolute expiry
// at their boundary.
type CreateSessionOptions struct {
	Token     string
	UserID    string
	ExpiresIn int64
}

// UseVerificationTokenOptions addresses the token to consume.
type UseVerificationTokenOptions struct {
	Email string
	Token string
}

// Adapter is the persistence contract a storage backend implements over the
// data model. Every operation takes a context and may block on I/O. The
// orchestrator invokes adapter calls strictly sequentially within one flow;
// concurrent safety across flows is the adapter's responsibility.
//
// Lookup misses return (nil, nil), never an error. Uniqueness conflicts
// return ErrDuplicate; conforming adapters never silently overwrite
// unrelated rows.
type Adapter interface {
	// CreateUser persists a new user and returns it as stored. The caller
	// supplies the id.
	CreateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	// GetUserByAccount resolves a user through their linked account.
	GetUserByAccount(ctx context.Context, id ProviderAccountID) (*User, error)
	// UpdateUser replaces the stored user wholesale; the id is required
	// and updating an unknown id returns ErrNotFound.
	UpdateUser(ctx context.Context, user User) (User, error)
	DeleteUser(ctx context.Context, id string) error

	GetAccount(ctx context.Context, id ProviderAccountID) (*Account, error)
	// LinkAccount persists the link between an external identity and a
	// local user.
	LinkAccount(ctx context.Context, account Account) (Account, error)
	UnlinkAccount(ctx context.Context, id ProviderAccountID) error

	CreateSession(ctx context.Context, opts CreateSessionOptions) (Session, error)
	// GetSessionAndUser returns the session and its user in one joined
	// lookup.
	GetSessionAndUser(ctx context.Context, token string) (*SessionUser, error)
	// UpdateSession merges the non-zero fields of session onto the stored
	// row addressed by Token and returns the result. Updating an unknown
	// token returns ErrNotFound.
	UpdateSession(ctx context.Context, session Session) (Session, error)
	DeleteSession(ctx context.Context, token string) error

	CreateVerificationToken(ctx context.Context, token VerificationToken) (VerificationToken, error)
	// UseVerificationToken consumes the token addressed by (email, token)
	// exactly once: the first call returns it, every later call returns
	// (nil, nil). Consumption is irreversible.
	UseVerificationToken(ctx context.Context, opts UseVerificationTokenOptions) (*VerificationToken, error)
}
