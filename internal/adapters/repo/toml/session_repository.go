package toml

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/logiqbot/keypool/internal/domain"
	"github.com/logiqbot/keypool/internal/ports"
)

type SessionRepository struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.SessionRepository = (*SessionRepository)(nil)

func NewSessionRepository(cfg Config) *SessionRepository {
	path := filepath.Join(cfg.dataDir, sessionsFile)
	return &SessionRepository{path: path, mu: lockForPath(path)}
}

func (r *SessionRepository) Get(ctx context.Context, guildID, userID, channelID int64) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readFile()
	if err != nil {
		return domain.Session{}, err
	}

	for _, entry := range file.Sessions {
		if entry.GuildID == guildID && entry.UserID == userID && entry.ChannelID == channelID {
			return fromSessionSchema(entry), nil
		}
	}
	return domain.Session{}, domain.ErrSessionNotFound
}

func (r *SessionRepository) GetActive(ctx context.Context, guildID, userID int64) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readFile()
	if err != nil {
		return domain.Session{}, err
	}

	for _, entry := range file.Sessions {
		if entry.GuildID == guildID && entry.UserID == userID && entry.Active {
			return fromSessionSchema(entry), nil
		}
	}
	return domain.Session{}, domain.ErrSessionNotFound
}

func (r *SessionRepository) Upsert(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readFile()
	if err != nil {
		return err
	}

	encoded := toSessionSchema(session)
	updated := false
	for i := range file.Sessions {
		if file.Sessions[i].GuildID == encoded.GuildID &&
			file.Sessions[i].UserID == encoded.UserID &&
			file.Sessions[i].ChannelID == encoded.ChannelID {
			file.Sessions[i] = encoded
			updated = true
			break
		}
	}
	if !updated {
		file.Sessions = append(file.Sessions, encoded)
	}

	return writeTOML(r.path, file)
}

func (r *SessionRepository) Delete(ctx context.Context, guildID, userID, channelID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readFile()
	if err != nil {
		return false, err
	}

	for i, entry := range file.Sessions {
		if entry.GuildID == guildID && entry.UserID == userID && entry.ChannelID == channelID {
			file.Sessions = append(file.Sessions[:i], file.Sessions[i+1:]...)
			if err := writeTOML(r.path, file); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

func (r *SessionRepository) readFile() (sessionsFileSchema, error) {
	var file sessionsFileSchema
	if err := readTOML(r.path, &file); err != nil {
		return sessionsFileSchema{}, err
	}
	if err := validateVersion(file.Version); err != nil {
		return sessionsFileSchema{}, err
	}
	if file.Version == 0 {
		file.Version = currentSchemaVersion
	}
	return file, nil
}
