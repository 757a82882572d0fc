package ports

import (
	"context"

	"github.com/logiqbot/keypool/internal/domain"
)

type SettingsRepository interface {
	Get(ctx context.Context, guildID int64) (domain.GuildSettings, error)
	Upsert(ctx context.Context, settings domain.GuildSettings) error
}
