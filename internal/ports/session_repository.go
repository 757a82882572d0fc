package ports

import (
	"context"

	"github.com/logiqbot/keypool/internal/domain"
)

type SessionRepository interface {
	Get(ctx context.Context, guildID, userID, channelID int64) (domain.Session, error)
	GetActive(ctx context.Context, guildID, userID int64) (domain.Session, error)
	Upsert(ctx context.Context, session domain.Session) error
	// Delete reports whether a session existed.
	Delete(ctx context.Context, guildID, userID, channelID int64) (bool, error)
}
