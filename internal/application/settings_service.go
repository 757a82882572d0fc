package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/logiqbot/keypool/internal/domain"
	"github.com/logiqbot/keypool/internal/ports"
)

var ErrPaidModelNotConfirmed = errors.New("model may cost credits; re-run with paid confirmation to allow it")

// SettingsService loads guild policy with defaulting and self-healing, and
// applies admin updates.
type SettingsService struct {
	repo  ports.SettingsRepository
	clock ports.Clock
}

func NewSettingsService(repo ports.SettingsRepository, clock ports.Clock) *SettingsService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &SettingsService{repo: repo, clock: clock}
}

// Get returns the guild's settings, writing back defaults for a new guild
// and any self-healed fields for an existing one.
func (s *SettingsService) Get(ctx context.Context, guildID int64) (domain.GuildSettings, error) {
	settings, err := s.repo.Get(ctx, guildID)
	switch {
	case errors.Is(err, domain.ErrGuildSettingsNotFound):
		settings = domain.DefaultGuildSettings(guildID)
		settings.UpdatedAt = s.clock.Now()
		if err := s.repo.Upsert(ctx, settings); err != nil {
			return domain.GuildSettings{}, fmt.Errorf("store default settings: %w", err)
		}
		return settings, nil
	case err != nil:
		return domain.GuildSettings{}, fmt.Errorf("load settings: %w", err)
	}

	if settings.Normalize() {
		settings.UpdatedAt = s.clock.Now()
		if err := s.repo.Upsert(ctx, settings); err != nil {
			return domain.GuildSettings{}, fmt.Errorf("store healed settings: %w", err)
		}
	}
	return settings, nil
}

func (s *SettingsService) SetEnabled(ctx context.Context, guildID int64, enabled bool) (domain.GuildSettings, error) {
	return s.mutate(ctx, guildID, func(settings *domain.GuildSettings) error {
		settings.Enabled = enabled
		return nil
	})
}

func (s *SettingsService) SetLimits(ctx context.Context, guildID int64, userCooldownSeconds, channelCooldownSeconds, maxConcurrent int) (domain.GuildSettings, error) {
	if userCooldownSeconds < 1 || channelCooldownSeconds < 1 || maxConcurrent < 1 {
		return domain.GuildSettings{}, fmt.Errorf("all limits must be at least 1")
	}
	return s.mutate(ctx, guildID, func(settings *domain.GuildSettings) error {
		settings.UserCooldownSeconds = userCooldownSeconds
		settings.ChannelCooldownSeconds = channelCooldownSeconds
		settings.MaxConcurrent = maxConcurrent
		return nil
	})
}

func (s *SettingsService) SetSessionMaxTurns(ctx context.Context, guildID int64, maxTurns int) (domain.GuildSettings, error) {
	if maxTurns < 1 {
		return domain.GuildSettings{}, fmt.Errorf("session max turns must be at least 1")
	}
	return s.mutate(ctx, guildID, func(settings *domain.GuildSettings) error {
		settings.SessionMaxTurns = maxTurns
		return nil
	})
}

// SetDefaultModel switches the guild default. Models without the ":free"
// suffix may cost credits and need explicit confirmation. The allowlist is
// extended to cover the new default.
func (s *SettingsService) SetDefaultModel(ctx context.Context, guildID int64, modelID string, confirmPaid bool) (domain.GuildSettings, error) {
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return domain.GuildSettings{}, fmt.Errorf("model id cannot be empty")
	}
	if !strings.HasSuffix(modelID, ":free") && !confirmPaid {
		return domain.GuildSettings{}, ErrPaidModelNotConfirmed
	}
	return s.mutate(ctx, guildID, func(settings *domain.GuildSettings) error {
		settings.DefaultModelID = modelID
		if !settings.ModelAllowed(modelID) {
			settings.ModelAllowlist = append(settings.ModelAllowlist, modelID)
		}
		return nil
	})
}

func (s *SettingsService) AllowChannel(ctx context.Context, guildID, channelID int64) (domain.GuildSettings, error) {
	return s.mutate(ctx, guildID, func(settings *domain.GuildSettings) error {
		if !settings.ChannelAllowed(channelID) {
			settings.AllowedChannelIDs = append(settings.AllowedChannelIDs, channelID)
		}
		return nil
	})
}

func (s *SettingsService) DisallowChannel(ctx context.Context, guildID, channelID int64) (domain.GuildSettings, error) {
	return s.mutate(ctx, guildID, func(settings *domain.GuildSettings) error {
		kept := settings.AllowedChannelIDs[:0]
		for _, id := range settings.AllowedChannelIDs {
			if id != channelID {
				kept = append(kept, id)
			}
		}
		settings.AllowedChannelIDs = kept
		return nil
	})
}

func (s *SettingsService) mutate(ctx context.Context, guildID int64, apply func(*domain.GuildSettings) error) (domain.GuildSettings, error) {
	settings, err := s.Get(ctx, guildID)
	if err != nil {
		return domain.GuildSettings{}, err
	}
	if err := apply(&settings); err != nil {
		return domain.GuildSettings{}, err
	}
	settings.UpdatedAt = s.clock.Now()
	if err := s.repo.Upsert(ctx, settings); err != nil {
		return domain.GuildSettings{}, fmt.Errorf("store settings: %w", err)
	}
	return settings, nil
}
