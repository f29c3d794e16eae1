// Package memadapter provides an in-memory persistence adapter. It is the
// default for tests and single-process deployments; nothing survives a
// restart. Sessions and verification tokens expire through ttlcache, the
// remaining collections live in mutex-guarded maps.
package memadapter

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	"github.com/pilab-dev/authcore/domain"
)

// Adapter is an in-memory implementation of domain.Adapter.
type Adapter struct {
	mu       sync.RWMutex
	users    map[string]domain.User            // user id -> user
	emails   map[string]string                 // lowercased email -> user id
	accounts map[domain.ProviderAccountID]domain.Account

	sessions     *ttlcache.Cache[string, domain.Session]
	verification *ttlcache.Cache[string, domain.VerificationToken]
}

var _ domain.Adapter = (*Adapter)(nil)

// New creates an empty in-memory adapter and starts its expiry loops.
func New() *Adapter {
	sessions := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, domain.Session](),
	)
	verification := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, domain.VerificationToken](),
	)
	go sessions.Start()
	go verification.Start()

	return &Adapter{
		users:        make(map[string]domain.User),
		emails:       make(map[string]string),
		accounts:     make(map[domain.ProviderAccountID]domain.Account),
		sessions:     sessions,
		verification: verification,
	}
}

// Close stops the expiry goroutines.
func (a *Adapter) Close() error {
	a.sessions.Stop()
	a.verification.Stop()
	return nil
}

func emailKey(email string) string { return strings.ToLower(email) }

// CreateUser stores a new user. A missing ID is filled in; a duplicate
// email is rejected with domain.ErrDuplicate.
func (a *Adapter) CreateUser(_ context.Context, user domain.User) (domain.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if _, ok := a.users[user.ID]; ok {
		return domain.User{}, domain.ErrDuplicate
	}
	if user.Email != "" {
		if _, ok := a.emails[emailKey(user.Email)]; ok {
			return domain.User{}, domain.ErrDuplicate
		}
	}

	a.users[user.ID] = user
	if user.Email != "" {
		a.emails[emailKey(user.Email)] = user.ID
	}
	return user, nil
}

func (a *Adapter) GetUser(_ context.Context, id string) (*domain.User, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	user, ok := a.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (a *Adapter) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	id, ok := a.emails[emailKey(email)]
	if !ok {
		return nil, nil
	}
	user := a.users[id]
	return &user, nil
}

func (a *Adapter) GetUserByAccount(_ context.Context, id domain.ProviderAccountID) (*domain.User, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	account, ok := a.accounts[id]
	if !ok {
		return nil, nil
	}
	user, ok := a.users[account.UserID]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// UpdateUser replaces a stored user. Updating an unknown user returns
// domain.ErrNotFound; changing the email to one another user holds returns
// domain.ErrDuplicate.
func (a *Adapter) UpdateUser(_ context.Context, user domain.User) (domain.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	old, ok := a.users[user.ID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	if user.Email != "" && !strings.EqualFold(user.Email, old.Email) {
		if owner, taken := a.emails[emailKey(user.Email)]; taken && owner != user.ID {
			return domain.User{}, domain.ErrDuplicate
		}
	}

	if old.Email != "" {
		delete(a.emails, emailKey(old.Email))
	}
	a.users[user.ID] = user
	if user.Email != "" {
		a.emails[emailKey(user.Email)] = user.ID
	}
	return user, nil
}

// DeleteUser removes a user and every account linked to them. Deleting an
// unknown user is a no-op.
func (a *Adapter) DeleteUser(_ context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	user, ok := a.users[id]
	if !ok {
		return nil
	}
	delete(a.users, id)
	if user.Email != "" {
		delete(a.emails, emailKey(user.Email))
	}
	for key, account := range a.accounts {
		if account.UserID == id {
			delete(a.accounts, key)
		}
	}
	return nil
}

func (a *Adapter) GetAccount(_ context.Context, id domain.ProviderAccountID) (*domain.Account, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	account, ok := a.accounts[id]
	if !ok {
		return nil, nil
	}
	return &account, nil
}

// LinkAccount attaches a provider account to a user. Linking an already
// linked (provider id, provider account id) pair returns domain.ErrDuplicate.
func (a *Adapter) LinkAccount(_ context.Context, account domain.Account) (domain.Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := domain.ProviderAccountID{
		ProviderID:        account.ProviderID,
		ProviderAccountID: account.ProviderAccountID,
	}
	if _, ok := a.accounts[key]; ok {
		return domain.Account{}, domain.ErrDuplicate
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	a.accounts[key] = account
	return account, nil
}

func (a *Adapter) UnlinkAccount(_ context.Context, id domain.ProviderAccountID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.accounts, id)
	return nil
}

func (a *Adapter) CreateSession(_ context.Context, opts domain.CreateSessionOptions) (domain.Session, error) {
	ttl := time.Duration(opts.ExpiresIn) * time.Second
	if ttl <= 0 {
		return domain.Session{}, errors.New("session lifetime must be positive")
	}
	session := domain.Session{
		Token:     opts.Token,
		UserID:    opts.UserID,
		ExpiresAt: time.Now().Add(ttl),
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if existing := a.sessions.Get(opts.Token); existing != nil {
		return domain.Session{}, domain.ErrDuplicate
	}
	a.sessions.Set(opts.Token, session, ttl)
	return session, nil
}

func (a *Adapter) GetSessionAndUser(_ context.Context, token string) (*domain.SessionUser, error) {
	item := a.sessions.Get(token)
	if item == nil {
		return nil, nil
	}
	session := item.Value()

	a.mu.RLock()
	user, ok := a.users[session.UserID]
	a.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &domain.SessionUser{Session: session, User: user}, nil
}

func (a *Adapter) UpdateSession(_ context.Context, session domain.Session) (domain.Session, error) {
	item := a.sessions.Get(session.Token)
	if item == nil {
		return domain.Session{}, domain.ErrNotFound
	}
	stored := item.Value()
	if session.UserID != "" {
		stored.UserID = session.UserID
	}
	if !session.ExpiresAt.IsZero() {
		stored.ExpiresAt = session.ExpiresAt
	}
	ttl := time.Until(stored.ExpiresAt)
	if ttl <= 0 {
		a.sessions.Delete(session.Token)
		return domain.Session{}, domain.ErrNotFound
	}
	a.sessions.Set(session.Token, stored, ttl)
	return stored, nil
}

func (a *Adapter) DeleteSession(_ context.Context, token string) error {
	a.sessions.Delete(token)
	return nil
}

func verificationKey(email, token string) string {
	return emailKey(email) + "\x00" + token
}

func (a *Adapter) CreateVerificationToken(_ context.Context, vt domain.VerificationToken) (domain.VerificationToken, error) {
	ttl := time.Until(vt.ExpiresAt)
	if ttl <= 0 {
		return domain.VerificationToken{}, errors.New("verification token already expired")
	}
	key := verificationKey(vt.Email, vt.Token)

	a.mu.Lock()
	defer a.mu.Unlock()

	if existing := a.verification.Get(key); existing != nil {
		return domain.VerificationToken{}, domain.ErrDuplicate
	}
	a.verification.Set(key, vt, ttl)
	return vt, nil
}

// UseVerificationToken consumes a token exactly once. A second use with
// the same pair finds nothing and returns (nil, nil).
func (a *Adapter) UseVerificationToken(_ context.Context, opts domain.UseVerificationTokenOptions) (*domain.VerificationToken, error) {
	key := verificationKey(opts.Email, opts.Token)

	a.mu.Lock()
	defer a.mu.Unlock()

	item := a.verification.Get(key)
	if item == nil {
		return nil, nil
	}
	vt := item.Value()
	a.verification.Delete(key)
	return &vt, nil
}
