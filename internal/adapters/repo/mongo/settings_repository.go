package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/logiqbot/keypool/internal/domain"
	"github.com/logiqbot/keypool/internal/ports"
)

type guildSettingsDoc struct {
	GuildID           int64   `bson:"guild_id"`
	Enabled           bool    `bson:"enabled"`
	AllowedChannelIDs []int64 `bson:"allowed_channel_ids,omitempty"`

	DefaultModelID string   `bson:"default_model_id"`
	DefaultMode    string   `bson:"default_mode"`
	ModelAllowlist []string `bson:"model_allowlist,omitempty"`

	UserCooldownSeconds    int `bson:"user_cooldown_seconds"`
	ChannelCooldownSeconds int `bson:"channel_cooldown_seconds"`
	MaxConcurrent          int `bson:"max_concurrent"`

	SessionMaxTurns   int `bson:"session_max_turns"`
	SessionTTLSeconds int `bson:"session_ttl_seconds"`

	UpdatedAt time.Time `bson:"updated_at"`
}

type SettingsRepository struct {
	collection *mongo.Collection
}

var _ ports.SettingsRepository = (*SettingsRepository)(nil)

func (r *SettingsRepository) Get(ctx context.Context, guildID int64) (domain.GuildSettings, error) {
	var doc guildSettingsDoc
	err := r.collection.FindOne(ctx, bson.M{"guild_id": guildID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.GuildSettings{}, domain.ErrGuildSettingsNotFound
	}
	if err != nil {
		return domain.GuildSettings{}, fmt.Errorf("find guild settings: %w", err)
	}

	settings := domain.GuildSettings(doc)
	settings.UpdatedAt = settings.UpdatedAt.UTC()
	return settings, nil
}

func (r *SettingsRepository) Upsert(ctx context.Context, settings domain.GuildSettings) error {
	doc := guildSettingsDoc(settings)
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"guild_id": settings.GuildID}, doc, opts); err != nil {
		return fmt.Errorf("upsert guild settings: %w", err)
	}
	return nil
}
