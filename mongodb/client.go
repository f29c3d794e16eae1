// Package mongodb implements the persistence adapter on MongoDB. Sessions
// and verification tokens expire through TTL indexes; uniqueness is
// enforced by unique indexes so concurrent writers race safely.
package mongodb

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	UsersCollection              = "auth_users"
	AccountsCollection           = "auth_accounts"
	SessionsCollection           = "auth_sessions"
	VerificationTokensCollection = "auth_verification_tokens"
)

// Connect dials MongoDB, verifies the connection and returns the named
// database. The client is instrumented with the OpenTelemetry command
// monitor.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	clientOptions := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	log.Info().Str("database", dbName).Msg("connected to MongoDB")
	return client.Database(dbName), nil
}

// Disconnect closes the database's underlying client.
func Disconnect(ctx context.Context, db *mongo.Database) {
	if db == nil {
		return
	}
	if err := db.Client().Disconnect(ctx); err != nil {
		log.Error().Err(err).Msg("closing MongoDB connection")
	}
}

// Ping checks liveness with a short timeout, for health endpoints.
func Ping(ctx context.Context, db *mongo.Database) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return db.Client().Ping(pingCtx, readpref.Primary())
}
