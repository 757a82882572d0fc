// Package mongo persists credentials, guild settings and sessions in a
// MongoDB database. It is the storage backend for multi-process
// deployments; single-host installs use the TOML store instead.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	DefaultDatabase = "keypool"

	credentialsCollection = "ai_api_keys"
	settingsCollection    = "ai_guild_settings"
	sessionsCollection    = "ai_sessions"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

func Connect(ctx context.Context, uri, database string) (*Store, error) {
	if database == "" {
		database = DefaultDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &Store{client: client, db: client.Database(database)}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Credentials() *CredentialRepository {
	return &CredentialRepository{collection: s.db.Collection(credentialsCollection)}
}

func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{collection: s.db.Collection(settingsCollection)}
}

func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{collection: s.db.Collection(sessionsCollection)}
}
