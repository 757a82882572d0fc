package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/logiqbot/keypool/internal/domain"
	"github.com/logiqbot/keypool/internal/ports"
)

const keyProbePath = "/key"

// KeyService covers the admin surface of the credential pool: add with an
// upstream validation probe, list, enable/disable, remove, probe.
type KeyService struct {
	creds  ports.CredentialRepository
	cipher ports.SecretCipher
	client ports.CompletionClient
	clock  ports.Clock
	log    *zap.Logger
}

func NewKeyService(creds ports.CredentialRepository, cipher ports.SecretCipher, client ports.CompletionClient, clock ports.Clock, log *zap.Logger) *KeyService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &KeyService{creds: creds, cipher: cipher, client: client, clock: clock, log: log}
}

type AddKeyCommand struct {
	GuildID int64
	Name    string
	APIKey  string
	RPM     int
	RPD     int
	Notes   string
}

func (s *KeyService) AddKey(ctx context.Context, cmd AddKeyCommand) (domain.Credential, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return domain.Credential{}, fmt.Errorf("key name cannot be empty")
	}

	_, err := s.creds.GetByName(ctx, cmd.GuildID, name)
	if err == nil {
		return domain.Credential{}, domain.ErrCredentialExists
	}
	if !errors.Is(err, domain.ErrCredentialNotFound) {
		return domain.Credential{}, fmt.Errorf("look up credential: %w", err)
	}

	encrypted, err := s.cipher.Encrypt(cmd.APIKey)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("encrypt key: %w", err)
	}

	resp, err := s.client.Send(ctx, "GET", keyProbePath, cmd.APIKey, nil)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("validate key upstream: %w", err)
	}
	if resp.StatusCode != 200 {
		message := "invalid key or upstream validation failed"
		if len(resp.Body) > 0 {
			message = truncate(string(resp.Body), maxErrorTextLen)
		}
		return domain.Credential{}, fmt.Errorf("key validation failed: %s", message)
	}

	rpm := cmd.RPM
	if rpm == 0 {
		rpm = domain.DefaultRPMLimit
	}
	rpd := cmd.RPD
	if rpd == 0 {
		rpd = domain.DefaultRPDLimit
	}

	now := s.clock.Now()
	cred := domain.Credential{
		GuildID:           cmd.GuildID,
		Name:              name,
		EncryptedKey:      encrypted,
		Fingerprint:       domain.FingerprintKey(cmd.APIKey),
		RPMLimit:          rpm,
		RPDLimit:          rpd,
		Enabled:           true,
		Notes:             cmd.Notes,
		ProviderInfo:      string(resp.Body),
		MinuteWindowStart: now,
		DayWindowStart:    now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := cred.Validate(); err != nil {
		return domain.Credential{}, err
	}

	if err := s.creds.Create(ctx, cred); err != nil {
		return domain.Credential{}, fmt.Errorf("store credential: %w", err)
	}

	s.log.Info("AI key added",
		zap.Int64("guild_id", cmd.GuildID),
		zap.String("key", name),
		zap.String("fingerprint", cred.Fingerprint))

	return cred, nil
}

func (s *KeyService) ListKeys(ctx context.Context, guildID int64) ([]domain.Credential, error) {
	keys, err := s.creds.List(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return keys, nil
}

func (s *KeyService) SetEnabled(ctx context.Context, guildID int64, name string, enabled bool) error {
	update := ports.CredentialUpdate{Enabled: &enabled, UpdatedAt: s.clock.Now()}
	if err := s.creds.Update(ctx, guildID, name, update); err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	return nil
}

func (s *KeyService) RemoveKey(ctx context.Context, guildID int64, name string) error {
	if err := s.creds.Delete(ctx, guildID, name); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// ProbeKey decrypts the stored secret, queries the upstream key endpoint
// and refreshes the stored provider info. It returns the raw response body.
func (s *KeyService) ProbeKey(ctx context.Context, guildID int64, name string) (string, error) {
	cred, err := s.creds.GetByName(ctx, guildID, name)
	if err != nil {
		return "", err
	}

	apiKey, err := s.cipher.Decrypt(cred.EncryptedKey)
	if err != nil {
		return "", fmt.Errorf("decrypt key: %w", err)
	}

	resp, err := s.client.Send(ctx, "GET", keyProbePath, apiKey, nil)
	if err != nil {
		return "", fmt.Errorf("probe key upstream: %w", err)
	}
	if resp.StatusCode != 200 {
		message := "probe failed"
		if len(resp.Body) > 0 {
			message = truncate(string(resp.Body), maxErrorTextLen)
		}
		return "", fmt.Errorf("key probe failed: %s", message)
	}

	info := string(resp.Body)
	update := ports.CredentialUpdate{ProviderInfo: &info, UpdatedAt: s.clock.Now()}
	if err := s.creds.Update(ctx, guildID, name, update); err != nil {
		s.log.Warn("failed to store provider info",
			zap.Int64("guild_id", guildID),
			zap.String("key", name),
			zap.Error(err))
	}

	return info, nil
}
