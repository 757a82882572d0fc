package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/logiqbot/keypool/internal/domain"
	"github.com/logiqbot/keypool/internal/ports"
)

type credentialDoc struct {
	GuildID      int64  `bson:"guild_id"`
	Name         string `bson:"name"`
	EncryptedKey string `bson:"encrypted_key"`
	Fingerprint  string `bson:"fingerprint"`

	RPMLimit int `bson:"rpm_limit"`
	RPDLimit int `bson:"rpd_limit"`

	MinuteWindowStart time.Time `bson:"minute_window_start,omitempty"`
	MinuteWindowCount int       `bson:"minute_window_count"`
	DayWindowStart    time.Time `bson:"day_window_start,omitempty"`
	DayWindowCount    int       `bson:"day_window_count"`

	Enabled       bool      `bson:"enabled"`
	CooldownUntil time.Time `bson:"cooldown_until,omitempty"`

	Notes        string `bson:"notes,omitempty"`
	ProviderInfo string `bson:"provider_info,omitempty"`

	LastUsedAt    time.Time `bson:"last_used_at,omitempty"`
	LastErrorCode int       `bson:"last_error_code,omitempty"`
	LastError     string    `bson:"last_error,omitempty"`
	LastErrorAt   time.Time `bson:"last_error_at,omitempty"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toCredentialDoc(c domain.Credential) credentialDoc {
	return credentialDoc(c)
}

func fromCredentialDoc(d credentialDoc) domain.Credential {
	c := domain.Credential(d)
	c.MinuteWindowStart = c.MinuteWindowStart.UTC()
	c.DayWindowStart = c.DayWindowStart.UTC()
	c.CooldownUntil = normalizeTime(c.CooldownUntil)
	c.LastUsedAt = normalizeTime(c.LastUsedAt)
	c.LastErrorAt = normalizeTime(c.LastErrorAt)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c
}

// normalizeTime maps the driver's zero representation back to Go's zero
// value so IsZero checks keep working after a round trip.
func normalizeTime(t time.Time) time.Time {
	if t.IsZero() || t.Unix() == 0 {
		return time.Time{}
	}
	return t.UTC()
}

type CredentialRepository struct {
	collection *mongo.Collection
}

var _ ports.CredentialRepository = (*CredentialRepository)(nil)

func credentialFilter(guildID int64, name string) bson.M {
	return bson.M{"guild_id": guildID, "name": name}
}

func (r *CredentialRepository) List(ctx context.Context, guildID int64) ([]domain.Credential, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"guild_id": guildID})
	if err != nil {
		return nil, fmt.Errorf("find credentials: %w", err)
	}
	defer cursor.Close(ctx)

	var creds []domain.Credential
	for cursor.Next(ctx) {
		var doc credentialDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode credential: %w", err)
		}
		creds = append(creds, fromCredentialDoc(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return creds, nil
}

func (r *CredentialRepository) GetByName(ctx context.Context, guildID int64, name string) (domain.Credential, error) {
	var doc credentialDoc
	err := r.collection.FindOne(ctx, credentialFilter(guildID, name)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Credential{}, domain.ErrCredentialNotFound
	}
	if err != nil {
		return domain.Credential{}, fmt.Errorf("find credential: %w", err)
	}
	return fromCredentialDoc(doc), nil
}

func (r *CredentialRepository) Create(ctx context.Context, credential domain.Credential) error {
	count, err := r.collection.CountDocuments(ctx, credentialFilter(credential.GuildID, credential.Name))
	if err != nil {
		return fmt.Errorf("check credential existence: %w", err)
	}
	if count > 0 {
		return domain.ErrCredentialExists
	}

	if _, err := r.collection.InsertOne(ctx, toCredentialDoc(credential)); err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (r *CredentialRepository) Update(ctx context.Context, guildID int64, name string, update ports.CredentialUpdate) error {
	set := bson.M{}
	unset := bson.M{}

	if update.Enabled != nil {
		set["enabled"] = *update.Enabled
	}
	if update.RPMLimit != nil {
		set["rpm_limit"] = *update.RPMLimit
	}
	if update.RPDLimit != nil {
		set["rpd_limit"] = *update.RPDLimit
	}
	if update.MinuteWindowStart != nil {
		set["minute_window_start"] = *update.MinuteWindowStart
	}
	if update.MinuteWindowCount != nil {
		set["minute_window_count"] = *update.MinuteWindowCount
	}
	if update.DayWindowStart != nil {
		set["day_window_start"] = *update.DayWindowStart
	}
	if update.DayWindowCount != nil {
		set["day_window_count"] = *update.DayWindowCount
	}
	switch {
	case update.CooldownUntil != nil:
		set["cooldown_until"] = *update.CooldownUntil
	case update.ClearCooldown:
		unset["cooldown_until"] = ""
	}
	if update.LastUsedAt != nil {
		set["last_used_at"] = *update.LastUsedAt
	}
	if update.ClearError {
		if update.LastErrorCode == nil {
			unset["last_error_code"] = ""
		}
		if update.LastError == nil {
			unset["last_error"] = ""
		}
		if update.LastErrorAt == nil {
			unset["last_error_at"] = ""
		}
	}
	if update.LastErrorCode != nil {
		set["last_error_code"] = *update.LastErrorCode
	}
	if update.LastError != nil {
		set["last_error"] = *update.LastError
	}
	if update.LastErrorAt != nil {
		set["last_error_at"] = *update.LastErrorAt
	}
	if update.Notes != nil {
		set["notes"] = *update.Notes
	}
	if update.ProviderInfo != nil {
		set["provider_info"] = *update.ProviderInfo
	}
	if !update.UpdatedAt.IsZero() {
		set["updated_at"] = update.UpdatedAt
	}

	mutation := bson.M{}
	if len(set) > 0 {
		mutation["$set"] = set
	}
	if len(unset) > 0 {
		mutation["$unset"] = unset
	}
	if len(mutation) == 0 {
		return nil
	}

	result, err := r.collection.UpdateOne(ctx, credentialFilter(guildID, name), mutation)
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrCredentialNotFound
	}
	return nil
}

func (r *CredentialRepository) Delete(ctx context.Context, guildID int64, name string) error {
	result, err := r.collection.DeleteOne(ctx, credentialFilter(guildID, name))
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrCredentialNotFound
	}
	return nil
}
