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

type turnDoc struct {
	Role      string    `bson:"role"`
	Content   string    `bson:"content"`
	Timestamp time.Time `bson:"timestamp"`
}

type sessionDoc struct {
	GuildID   int64 `bson:"guild_id"`
	UserID    int64 `bson:"user_id"`
	ChannelID int64 `bson:"channel_id"`

	Turns          []turnDoc `bson:"turns,omitempty"`
	Active         bool      `bson:"active"`
	PrivateDefault bool      `bson:"private_default"`
	Mode           string    `bson:"mode,omitempty"`

	UpdatedAt time.Time `bson:"updated_at"`
}

func toSessionDoc(s domain.Session) sessionDoc {
	turns := make([]turnDoc, 0, len(s.Turns))
	for _, turn := range s.Turns {
		turns = append(turns, turnDoc{
			Role:      string(turn.Role),
			Content:   turn.Content,
			Timestamp: turn.Timestamp,
		})
	}
	return sessionDoc{
		GuildID:        s.GuildID,
		UserID:         s.UserID,
		ChannelID:      s.ChannelID,
		Turns:          turns,
		Active:         s.Active,
		PrivateDefault: s.PrivateDefault,
		Mode:           s.Mode,
		UpdatedAt:      s.UpdatedAt,
	}
}

func fromSessionDoc(d sessionDoc) domain.Session {
	turns := make([]domain.Turn, 0, len(d.Turns))
	for _, turn := range d.Turns {
		turns = append(turns, domain.Turn{
			Role:      domain.Role(turn.Role),
			Content:   turn.Content,
			Timestamp: turn.Timestamp.UTC(),
		})
	}
	return domain.Session{
		GuildID:        d.GuildID,
		UserID:         d.UserID,
		ChannelID:      d.ChannelID,
		Turns:          turns,
		Active:         d.Active,
		PrivateDefault: d.PrivateDefault,
		Mode:           d.Mode,
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
}

type SessionRepository struct {
	collection *mongo.Collection
}

var _ ports.SessionRepository = (*SessionRepository)(nil)

func sessionFilter(guildID, userID, channelID int64) bson.M {
	return bson.M{"guild_id": guildID, "user_id": userID, "channel_id": channelID}
}

func (r *SessionRepository) Get(ctx context.Context, guildID, userID, channelID int64) (domain.Session, error) {
	var doc sessionDoc
	err := r.collection.FindOne(ctx, sessionFilter(guildID, userID, channelID)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("find session: %w", err)
	}
	return fromSessionDoc(doc), nil
}

func (r *SessionRepository) GetActive(ctx context.Context, guildID, userID int64) (domain.Session, error) {
	var doc sessionDoc
	err := r.collection.FindOne(ctx, bson.M{"guild_id": guildID, "user_id": userID, "active": true}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("find active session: %w", err)
	}
	return fromSessionDoc(doc), nil
}

func (r *SessionRepository) Upsert(ctx context.Context, session domain.Session) error {
	doc := toSessionDoc(session)
	opts := options.Replace().SetUpsert(true)
	filter := sessionFilter(session.GuildID, session.UserID, session.ChannelID)
	if _, err := r.collection.ReplaceOne(ctx, filter, doc, opts); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, guildID, userID, channelID int64) (bool, error) {
	result, err := r.collection.DeleteOne(ctx, sessionFilter(guildID, userID, channelID))
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return result.DeletedCount > 0, nil
}
