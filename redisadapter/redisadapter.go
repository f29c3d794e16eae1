// Package redisadapter implements the persistence adapter on Redis. Rows
// are JSON values under prefixed keys; uniqueness rides on SetNX and
// verification tokens are consumed with GETDEL so racing callers cannot
// both win.
package redisadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pilab-dev/authcore/domain"
)

// Adapter implements domain.Adapter on a Redis client.
type Adapter struct {
	client *redis.Client
	prefix string
}

var _ domain.Adapter = (*Adapter)(nil)

// New builds an adapter around an existing client. The prefix namespaces
// every key; "authcore" when empty.
func New(client *redis.Client, prefix string) *Adapter {
	if prefix == "" {
		prefix = "authcore"
	}
	return &Adapter{client: client, prefix: prefix}
}

func (a *Adapter) userKey(id string) string { return fmt.Sprintf("%s:user:%s", a.prefix, id) }

func (a *Adapter) emailKey(email string) string {
	return fmt.Sprintf("%s:email:%s", a.prefix, strings.ToLower(email))
}

func (a *Adapter) accountKey(id domain.ProviderAccountID) string {
	return fmt.Sprintf("%s:account:%s:%s", a.prefix, id.ProviderID, id.ProviderAccountID)
}

func (a *Adapter) userAccountsKey(userID string) string {
	return fmt.Sprintf("%s:user-accounts:%s", a.prefix, userID)
}

func (a *Adapter) sessionKey(token string) string {
	return fmt.Sprintf("%s:session:%s", a.prefix, token)
}

func (a *Adapter) verificationKey(email, token string) string {
	return fmt.Sprintf("%s:verification:%s:%s", a.prefix, strings.ToLower(email), token)
}

// setJSON writes a JSON row, NX optionally guarding against overwrites.
func (a *Adapter) setJSON(ctx context.Context, key string, value any, ttl time.Duration, nx bool) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", key, err)
	}
	if nx {
		ok, err := a.client.SetNX(ctx, key, data, ttl).Result()
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrDuplicate
		}
		return nil
	}
	return a.client.Set(ctx, key, data, ttl).Err()
}

// getJSON reads a JSON row; a missing key yields (false, nil).
func (a *Adapter) getJSON(ctx context.Context, key string, out any) (bool, error) {
	data, err := a.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("unmarshaling %s: %w", key, err)
	}
	return true, nil
}

func (a *Adapter) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Email != "" {
		if err := a.setJSON(ctx, a.emailKey(user.Email), user.ID, 0, true); err != nil {
			return domain.User{}, err
		}
	}
	if err := a.setJSON(ctx, a.userKey(user.ID), user, 0, true); err != nil {
		if user.Email != "" {
			a.client.Del(ctx, a.emailKey(user.Email))
		}
		return domain.User{}, err
	}
	return user, nil
}

func (a *Adapter) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	ok, err := a.getJSON(ctx, a.userKey(id), &user)
	if err != nil || !ok {
		return nil, err
	}
	return &user, nil
}

func (a *Adapter) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var id string
	ok, err := a.getJSON(ctx, a.emailKey(email), &id)
	if err != nil || !ok {
		return nil, err
	}
	return a.GetUser(ctx, id)
}

func (a *Adapter) GetUserByAccount(ctx context.Context, id domain.ProviderAccountID) (*domain.User, error) {
	account, err := a.GetAccount(ctx, id)
	if err != nil || account == nil {
		return nil, err
	}
	return a.GetUser(ctx, account.UserID)
}

func (a *Adapter) UpdateUser(ctx context.Context, user domain.User) (domain.User, error) {
	old, err := a.GetUser(ctx, user.ID)
	if err != nil {
		return domain.User{}, err
	}
	if old == nil {
		return domain.User{}, domain.ErrNotFound
	}

	if user.Email != "" && !strings.EqualFold(user.Email, old.Email) {
		if err := a.setJSON(ctx, a.emailKey(user.Email), user.ID, 0, true); err != nil {
			return domain.User{}, err
		}
		if old.Email != "" {
			a.client.Del(ctx, a.emailKey(old.Email))
		}
	}
	if err := a.setJSON(ctx, a.userKey(user.ID), user, 0, false); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (a *Adapter) DeleteUser(ctx context.Context, id string) error {
	user, err := a.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	keys := []string{a.userKey(id)}
	if user.Email != "" {
		keys = append(keys, a.emailKey(user.Email))
	}
	accountKeys, err := a.client.SMembers(ctx, a.userAccountsKey(id)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	keys = append(keys, accountKeys...)
	keys = append(keys, a.userAccountsKey(id))

	return a.client.Del(ctx, keys...).Err()
}

func (a *Adapter) GetAccount(ctx context.Context, id domain.ProviderAccountID) (*domain.Account, error) {
	var account domain.Account
	ok, err := a.getJSON(ctx, a.accountKey(id), &account)
	if err != nil || !ok {
		return nil, err
	}
	return &account, nil
}

func (a *Adapter) LinkAccount(ctx context.Context, account domain.Account) (domain.Account, error) {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	key := a.accountKey(domain.ProviderAccountID{
		ProviderID:        account.ProviderID,
		ProviderAccountID: account.ProviderAccountID,
	})
	if err := a.setJSON(ctx, key, account, 0, true); err != nil {
		return domain.Account{}, err
	}
	if err := a.client.SAdd(ctx, a.userAccountsKey(account.UserID), key).Err(); err != nil {
		return domain.Account{}, err
	}
	return account, nil
}

func (a *Adapter) UnlinkAccount(ctx context.Context, id domain.ProviderAccountID) error {
	account, err := a.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	if account == nil {
		return nil
	}
	key := a.accountKey(id)
	if err := a.client.SRem(ctx, a.userAccountsKey(account.UserID), key).Err(); err != nil {
		return err
	}
	return a.client.Del(ctx, key).Err()
}

func (a *Adapter) CreateSession(ctx context.Context, opts domain.CreateSessionOptions) (domain.Session, error) {
	ttl := time.Duration(opts.ExpiresIn) * time.Second
	if ttl <= 0 {
		return domain.Session{}, errors.New("session lifetime must be positive")
	}
	session := domain.Session{
		Token:     opts.Token,
		UserID:    opts.UserID,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := a.setJSON(ctx, a.sessionKey(opts.Token), session, ttl, true); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

func (a *Adapter) GetSessionAndUser(ctx context.Context, token string) (*domain.SessionUser, error) {
	var session domain.Session
	ok, err := a.getJSON(ctx, a.sessionKey(token), &session)
	if err != nil || !ok {
		return nil, err
	}
	user, err := a.GetUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return &domain.SessionUser{Session: session, User: *user}, nil
}

func (a *Adapter) UpdateSession(ctx context.Context, session domain.Session) (domain.Session, error) {
	var stored domain.Session
	ok, err := a.getJSON(ctx, a.sessionKey(session.Token), &stored)
	if err != nil {
		return domain.Session{}, err
	}
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	if session.UserID != "" {
		stored.UserID = session.UserID
	}
	if !session.ExpiresAt.IsZero() {
		stored.ExpiresAt = session.ExpiresAt
	}
	ttl := time.Until(stored.ExpiresAt)
	if ttl <= 0 {
		a.client.Del(ctx, a.sessionKey(session.Token))
		return domain.Session{}, domain.ErrNotFound
	}
	if err := a.setJSON(ctx, a.sessionKey(session.Token), stored, ttl, false); err != nil {
		return domain.Session{}, err
	}
	return stored, nil
}

func (a *Adapter) DeleteSession(ctx context.Context, token string) error {
	return a.client.Del(ctx, a.sessionKey(token)).Err()
}

func (a *Adapter) CreateVerificationToken(ctx context.Context, vt domain.VerificationToken) (domain.VerificationToken, error) {
	ttl := time.Until(vt.ExpiresAt)
	if ttl <= 0 {
		return domain.VerificationToken{}, errors.New("verification token already expired")
	}
	if err := a.setJSON(ctx, a.verificationKey(vt.Email, vt.Token), vt, ttl, true); err != nil {
		return domain.VerificationToken{}, err
	}
	return vt, nil
}

// UseVerificationToken consumes a token with GETDEL, so exactly one of
// any set of racing callers receives it.
func (a *Adapter) UseVerificationToken(ctx context.Context, opts domain.UseVerificationTokenOptions) (*domain.VerificationToken, error) {
	data, err := a.client.GetDel(ctx, a.verificationKey(opts.Email, opts.Token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var vt domain.VerificationToken
	if err := json.Unmarshal(data, &vt); err != nil {
		return nil, fmt.Errorf("unmarshaling verification token: %w", err)
	}
	return &vt, nil
}
