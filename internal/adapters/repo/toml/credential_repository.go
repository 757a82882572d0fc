package toml

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/logiqbot/keypool/internal/domain"
	"github.com/logiqbot/keypool/internal/ports"
)

type CredentialRepository struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.CredentialRepository = (*CredentialRepository)(nil)

func NewCredentialRepository(cfg Config) *CredentialRepository {
	path := filepath.Join(cfg.dataDir, credentialsFile)
	return &CredentialRepository{path: path, mu: lockForPath(path)}
}

func (r *CredentialRepository) List(ctx context.Context, guildID int64) ([]domain.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readFile()
	if err != nil {
		return nil, err
	}

	var creds []domain.Credential
	for _, entry := range file.Credentials {
		if entry.GuildID == guildID {
			creds = append(creds, fromCredentialSchema(entry))
		}
	}
	return creds, nil
}

func (r *CredentialRepository) GetByName(ctx context.Context, guildID int64, name string) (domain.Credential, error) {
	if err := ctx.Err(); err != nil {
		return domain.Credential{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readFile()
	if err != nil {
		return domain.Credential{}, err
	}

	for _, entry := range file.Credentials {
		if entry.GuildID == guildID && entry.Name == name {
			return fromCredentialSchema(entry), nil
		}
	}
	return domain.Credential{}, domain.ErrCredentialNotFound
}

func (r *CredentialRepository) Create(ctx context.Context, credential domain.Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readFile()
	if err != nil {
		return err
	}

	for _, entry := range file.Credentials {
		if entry.GuildID == credential.GuildID && entry.Name == credential.Name {
			return domain.ErrCredentialExists
		}
	}

	file.Credentials = append(file.Credentials, toCredentialSchema(credential))
	return writeTOML(r.path, file)
}

func (r *CredentialRepository) Update(ctx context.Context, guildID int64, name string, update ports.CredentialUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readFile()
	if err != nil {
		return err
	}

	for i, entry := range file.Credentials {
		if entry.GuildID != guildID || entry.Name != name {
			continue
		}
		cred := fromCredentialSchema(entry)
		update.Apply(&cred)
		file.Credentials[i] = toCredentialSchema(cred)
		return writeTOML(r.path, file)
	}
	return domain.ErrCredentialNotFound
}

func (r *CredentialRepository) Delete(ctx context.Context, guildID int64, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readFile()
	if err != nil {
		return err
	}

	for i, entry := range file.Credentials {
		if entry.GuildID == guildID && entry.Name == name {
			file.Credentials = append(file.Credentials[:i], file.Credentials[i+1:]...)
			return writeTOML(r.path, file)
		}
	}
	return domain.ErrCredentialNotFound
}

func (r *CredentialRepository) readFile() (credentialsFileSchema, error) {
	var file credentialsFileSchema
	if err := readTOML(r.path, &file); err != nil {
		return credentialsFileSchema{}, err
	}
	if err := validateVersion(file.Version); err != nil {
		return credentialsFileSchema{}, err
	}
	if file.Version == 0 {
		file.Version = currentSchemaVersion
	}
	return file, nil
}
