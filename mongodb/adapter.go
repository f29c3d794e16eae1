package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/pilab-dev/authcore/domain"
)

// Adapter implements domain.Adapter on a MongoDB database.
type Adapter struct {
	users        *mongo.Collection
	accounts     *mongo.Collection
	sessions     *mongo.Collection
	verification *mongo.Collection
}

var _ domain.Adapter = (*Adapter)(nil)

// NewAdapter builds the adapter and ensures its indexes.
func NewAdapter(ctx context.Context, db *mongo.Database) (*Adapter, error) {
	a := &Adapter{
		users:        db.Collection(UsersCollection),
		accounts:     db.Collection(AccountsCollection),
		sessions:     db.Collection(SessionsCollection),
		verification: db.Collection(VerificationTokensCollection),
	}
	if err := a.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("creating indexes: %w", err)
	}
	return a, nil
}

func (a *Adapter) createIndexes(ctx context.Context) error {
	// Case-insensitive unique email.
	_, err := a.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetCollation(&options.Collation{Locale: "en", Strength: 2}).
				SetPartialFilterExpression(bson.M{"email": bson.M{"$gt": ""}}),
		},
	})
	if err != nil {
		return err
	}

	// One account row per (provider id, provider account id).
	_, err = a.accounts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "provider_id", Value: 1},
				{Key: "provider_account_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	})
	if err != nil {
		return err
	}

	// Sessions and verification tokens expire server-side.
	_, err = a.sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return err
	}
	_, err = a.verification.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{
				{Key: "email", Value: 1},
				{Key: "token", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return err
	}

	log.Debug().Msg("MongoDB indexes ensured")
	return nil
}

func (a *Adapter) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if _, err := a.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.User{}, domain.ErrDuplicate
		}
		log.Error().Err(err).Msg("inserting user")
		return domain.User{}, err
	}
	return user, nil
}

func (a *Adapter) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return a.findUser(ctx, bson.M{"_id": id}, nil)
}

func (a *Adapter) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	opts := options.FindOne().SetCollation(&options.Collation{Locale: "en", Strength: 2})
	return a.findUser(ctx, bson.M{"email": email}, opts)
}

func (a *Adapter) findUser(ctx context.Context, filter bson.M, opts options.Lister[options.FindOneOptions]) (*domain.User, error) {
	var user domain.User
	var err error
	if opts != nil {
		err = a.users.FindOne(ctx, filter, opts).Decode(&user)
	} else {
		err = a.users.FindOne(ctx, filter).Decode(&user)
	}
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (a *Adapter) GetUserByAccount(ctx context.Context, id domain.ProviderAccountID) (*domain.User, error) {
	account, err := a.GetAccount(ctx, id)
	if err != nil || account == nil {
		return nil, err
	}
	return a.GetUser(ctx, account.UserID)
}

func (a *Adapter) UpdateUser(ctx context.Context, user domain.User) (domain.User, error) {
	result, err := a.users.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.User{}, domain.ErrDuplicate
		}
		return domain.User{}, err
	}
	if result.MatchedCount == 0 {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}

func (a *Adapter) DeleteUser(ctx context.Context, id string) error {
	if _, err := a.users.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return err
	}
	_, err := a.accounts.DeleteMany(ctx, bson.M{"user_id": id})
	return err
}

func accountFilter(id domain.ProviderAccountID) bson.M {
	return bson.M{
		"provider_id":         id.ProviderID,
		"provider_account_id": id.ProviderAccountID,
	}
}

func (a *Adapter) GetAccount(ctx context.Context, id domain.ProviderAccountID) (*domain.Account, error) {
	var account domain.Account
	err := a.accounts.FindOne(ctx, accountFilter(id)).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (a *Adapter) LinkAccount(ctx context.Context, account domain.Account) (domain.Account, error) {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if _, err := a.accounts.InsertOne(ctx, account); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.Account{}, domain.ErrDuplicate
		}
		log.Error().Err(err).Msg("inserting account")
		return domain.Account{}, err
	}
	return account, nil
}

func (a *Adapter) UnlinkAccount(ctx context.Context, id domain.ProviderAccountID) error {
	_, err := a.accounts.DeleteOne(ctx, accountFilter(id))
	return err
}

func (a *Adapter) CreateSession(ctx context.Context, opts domain.CreateSessionOptions) (domain.Session, error) {
	if opts.ExpiresIn <= 0 {
		return domain.Session{}, errors.New("session lifetime must be positive")
	}
	session := domain.Session{
		Token:     opts.Token,
		UserID:    opts.UserID,
		ExpiresAt: time.Now().Add(time.Duration(opts.ExpiresIn) * time.Second),
	}
	if _, err := a.sessions.InsertOne(ctx, session); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.Session{}, domain.ErrDuplicate
		}
		return domain.Session{}, err
	}
	return session, nil
}

func (a *Adapter) GetSessionAndUser(ctx context.Context, token string) (*domain.SessionUser, error) {
	var session domain.Session
	err := a.sessions.FindOne(ctx, bson.M{"_id": token}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	// TTL deletion runs on a background cadence; an expired row may
	// still be present.
	if time.Now().After(session.ExpiresAt) {
		return nil, nil
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

// sessionUpdateDoc builds the $set document from the non-zero fields of
// session. An empty map means there is nothing to write.
func sessionUpdateDoc(session domain.Session) bson.M {
	update := bson.M{}
	if session.UserID != "" {
		update["user_id"] = session.UserID
	}
	if !session.ExpiresAt.IsZero() {
		update["expires_at"] = session.ExpiresAt
	}
	return update
}

func (a *Adapter) UpdateSession(ctx context.Context, session domain.Session) (domain.Session, error) {
	update := sessionUpdateDoc(session)
	var updated domain.Session
	if len(update) == 0 {
		// The server rejects an empty $set; an all-zero argument is a
		// plain read of the stored row.
		err := a.sessions.FindOne(ctx, bson.M{"_id": session.Token}).Decode(&updated)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return domain.Session{}, domain.ErrNotFound
			}
			return domain.Session{}, err
		}
		return updated, nil
	}
	err := a.sessions.FindOneAndUpdate(ctx,
		bson.M{"_id": session.Token},
		bson.M{"$set": update},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, err
	}
	return updated, nil
}

func (a *Adapter) DeleteSession(ctx context.Context, token string) error {
	_, err := a.sessions.DeleteOne(ctx, bson.M{"_id": token})
	return err
}

func (a *Adapter) CreateVerificationToken(ctx context.Context, vt domain.VerificationToken) (domain.VerificationToken, error) {
	if _, err := a.verification.InsertOne(ctx, vt); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.VerificationToken{}, domain.ErrDuplicate
		}
		return domain.VerificationToken{}, err
	}
	return vt, nil
}

// UseVerificationToken consumes a token atomically: FindOneAndDelete
// guarantees exactly one caller wins a race.
func (a *Adapter) UseVerificationToken(ctx context.Context, opts domain.UseVerificationTokenOptions) (*domain.VerificationToken, error) {
	var vt domain.VerificationToken
	err := a.verification.FindOneAndDelete(ctx, bson.M{
		"email": opts.Email,
		"token": opts.Token,
	}).Decode(&vt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	if time.Now().After(vt.ExpiresAt) {
		return nil, nil
	}
	return &vt, nil
}
