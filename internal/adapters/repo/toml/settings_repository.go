package toml

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/logiqbot/keypool/internal/domain"
	"github.com/logiqbot/keypool/internal/ports"
)

type SettingsRepository struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.SettingsRepository = (*SettingsRepository)(nil)

func NewSettingsRepository(cfg Config) *SettingsRepository {
	path := filepath.Join(cfg.dataDir, guildsFile)
	return &SettingsRepository{path: path, mu: lockForPath(path)}
}

func (r *SettingsRepository) Get(ctx context.Context, guildID int64) (domain.GuildSettings, error) {
	if err := ctx.Err(); err != nil {
		return domain.GuildSettings{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readFile()
	if err != nil {
		return domain.GuildSettings{}, err
	}

	for _, entry := range file.Guilds {
		if entry.GuildID == guildID {
			return fromGuildSchema(entry), nil
		}
	}
	return domain.GuildSettings{}, domain.ErrGuildSettingsNotFound
}

func (r *SettingsRepository) Upsert(ctx context.Context, settings domain.GuildSettings) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readFile()
	if err != nil {
		return err
	}

	encoded := toGuildSchema(settings)
	updated := false
	for i := range file.Guilds {
		if file.Guilds[i].GuildID == encoded.GuildID {
			file.Guilds[i] = encoded
			updated = true
			break
		}
	}
	if !updated {
		file.Guilds = append(file.Guilds, encoded)
	}

	return writeTOML(r.path, file)
}

func (r *SettingsRepository) readFile() (guildsFileSchema, error) {
	var file guildsFileSchema
	if err := readTOML(r.path, &file); err != nil {
		return guildsFileSchema{}, err
	}
	if err := validateVersion(file.Version); err != nil {
		return guildsFileSchema{}, err
	}
	if file.Version == 0 {
		file.Version = currentSchemaVersion
	}
	return file, nil
}
