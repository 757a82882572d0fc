package toml

import (
	"fmt"
	"time"

	"github.com/logiqbot/keypool/internal/domain"
)

const currentSchemaVersion = 1

type credentialsFileSchema struct {
	Version     int                `toml:"version"`
	Credentials []credentialSchema `toml:"credentials"`
}

type guildsFileSchema struct {
	Version int           `toml:"version"`
	Guilds  []guildSchema `toml:"guilds"`
}

type sessionsFileSchema struct {
	Version  int             `toml:"version"`
	Sessions []sessionSchema `toml:"sessions"`
}

func validateVersion(version int) error {
	if version > currentSchemaVersion {
		return fmt.Errorf("unsupported store schema version %d (current %d)", version, currentSchemaVersion)
	}
	return nil
}

type credentialSchema struct {
	GuildID      int64  `toml:"guild_id"`
	Name         string `toml:"name"`
	EncryptedKey string `toml:"encrypted_key"`
	Fingerprint  string `toml:"fingerprint"`

	RPMLimit int `toml:"rpm_limit"`
	RPDLimit int `toml:"rpd_limit"`

	MinuteWindowStart string `toml:"minute_window_start,omitempty"`
	MinuteWindowCount int    `toml:"minute_window_count"`
	DayWindowStart    string `toml:"day_window_start,omitempty"`
	DayWindowCount    int    `toml:"day_window_count"`

	Enabled       bool   `toml:"enabled"`
	CooldownUntil string `toml:"cooldown_until,omitempty"`

	Notes        string `toml:"notes,omitempty"`
	ProviderInfo string `toml:"provider_info,omitempty"`

	LastUsedAt    string `toml:"last_used_at,omitempty"`
	LastErrorCode int    `toml:"last_error_code,omitempty"`
	LastError     string `toml:"last_error,omitempty"`
	LastErrorAt   string `toml:"last_error_at,omitempty"`

	CreatedAt string `toml:"created_at,omitempty"`
	UpdatedAt string `toml:"updated_at,omitempty"`
}

func toCredentialSchema(c domain.Credential) credentialSchema {
	return credentialSchema{
		GuildID:           c.GuildID,
		Name:              c.Name,
		EncryptedKey:      c.EncryptedKey,
		Fingerprint:       c.Fingerprint,
		RPMLimit:          c.RPMLimit,
		RPDLimit:          c.RPDLimit,
		MinuteWindowStart: formatTime(c.MinuteWindowStart),
		MinuteWindowCount: c.MinuteWindowCount,
		DayWindowStart:    formatTime(c.DayWindowStart),
		DayWindowCount:    c.DayWindowCount,
		Enabled:           c.Enabled,
		CooldownUntil:     formatTime(c.CooldownUntil),
		Notes:             c.Notes,
		ProviderInfo:      c.ProviderInfo,
		LastUsedAt:        formatTime(c.LastUsedAt),
		LastErrorCode:     c.LastErrorCode,
		LastError:         c.LastError,
		LastErrorAt:       formatTime(c.LastErrorAt),
		CreatedAt:         formatTime(c.CreatedAt),
		UpdatedAt:         formatTime(c.UpdatedAt),
	}
}

func fromCredentialSchema(c credentialSchema) domain.Credential {
	return domain.Credential{
		GuildID:           c.GuildID,
		Name:              c.Name,
		EncryptedKey:      c.EncryptedKey,
		Fingerprint:       c.Fingerprint,
		RPMLimit:          c.RPMLimit,
		RPDLimit:          c.RPDLimit,
		MinuteWindowStart: parseTime(c.MinuteWindowStart),
		MinuteWindowCount: c.MinuteWindowCount,
		DayWindowStart:    parseTime(c.DayWindowStart),
		DayWindowCount:    c.DayWindowCount,
		Enabled:           c.Enabled,
		CooldownUntil:     parseTime(c.CooldownUntil),
		Notes:             c.Notes,
		ProviderInfo:      c.ProviderInfo,
		LastUsedAt:        parseTime(c.LastUsedAt),
		LastErrorCode:     c.LastErrorCode,
		LastError:         c.LastError,
		LastErrorAt:       parseTime(c.LastErrorAt),
		CreatedAt:         parseTime(c.CreatedAt),
		UpdatedAt:         parseTime(c.UpdatedAt),
	}
}

type guildSchema struct {
	GuildID           int64   `toml:"guild_id"`
	Enabled           bool    `toml:"enabled"`
	AllowedChannelIDs []int64 `toml:"allowed_channel_ids,omitempty"`

	DefaultModelID string   `toml:"default_model_id"`
	DefaultMode    string   `toml:"default_mode"`
	ModelAllowlist []string `toml:"model_allowlist,omitempty"`

	UserCooldownSeconds    int `toml:"user_cooldown_seconds"`
	ChannelCooldownSeconds int `toml:"channel_cooldown_seconds"`
	MaxConcurrent          int `toml:"max_concurrent"`

	SessionMaxTurns   int `toml:"session_max_turns"`
	SessionTTLSeconds int `toml:"session_ttl_seconds"`

	UpdatedAt string `toml:"updated_at,omitempty"`
}

func toGuildSchema(s domain.GuildSettings) guildSchema {
	return guildSchema{
		GuildID:                s.GuildID,
		Enabled:                s.Enabled,
		AllowedChannelIDs:      s.AllowedChannelIDs,
		DefaultModelID:         s.DefaultModelID,
		DefaultMode:            s.DefaultMode,
		ModelAllowlist:         s.ModelAllowlist,
		UserCooldownSeconds:    s.UserCooldownSeconds,
		ChannelCooldownSeconds: s.ChannelCooldownSeconds,
		MaxConcurrent:          s.MaxConcurrent,
		SessionMaxTurns:        s.SessionMaxTurns,
		SessionTTLSeconds:      s.SessionTTLSeconds,
		UpdatedAt:              formatTime(s.UpdatedAt),
	}
}

func fromGuildSchema(s guildSchema) domain.GuildSettings {
	return domain.GuildSettings{
		GuildID:                s.GuildID,
		Enabled:                s.Enabled,
		AllowedChannelIDs:      s.AllowedChannelIDs,
		DefaultModelID:         s.DefaultModelID,
		DefaultMode:            s.DefaultMode,
		ModelAllowlist:         s.ModelAllowlist,
		UserCooldownSeconds:    s.UserCooldownSeconds,
		ChannelCooldownSeconds: s.ChannelCooldownSeconds,
		MaxConcurrent:          s.MaxConcurrent,
		SessionMaxTurns:        s.SessionMaxTurns,
		SessionTTLSeconds:      s.SessionTTLSeconds,
		UpdatedAt:              parseTime(s.UpdatedAt),
	}
}

type sessionSchema struct {
	GuildID   int64 `toml:"guild_id"`
	UserID    int64 `toml:"user_id"`
	ChannelID int64 `toml:"channel_id"`

	Turns          []turnSchema `toml:"turns,omitempty"`
	Active         bool         `toml:"active"`
	PrivateDefault bool         `toml:"private_default"`
	Mode           string       `toml:"mode,omitempty"`

	UpdatedAt string `toml:"updated_at,omitempty"`
}

type turnSchema struct {
	Role      string `toml:"role"`
	Content   string `toml:"content"`
	Timestamp string `toml:"timestamp,omitempty"`
}

func toSessionSchema(s domain.Session) sessionSchema {
	turns := make([]turnSchema, 0, len(s.Turns))
	for _, turn := range s.Turns {
		turns = append(turns, turnSchema{
			Role:      string(turn.Role),
			Content:   turn.Content,
			Timestamp: formatTime(turn.Timestamp),
		})
	}
	return sessionSchema{
		GuildID:        s.GuildID,
		UserID:         s.UserID,
		ChannelID:      s.ChannelID,
		Turns:          turns,
		Active:         s.Active,
		PrivateDefault: s.PrivateDefault,
		Mode:           s.Mode,
		UpdatedAt:      formatTime(s.UpdatedAt),
	}
}

func fromSessionSchema(s sessionSchema) domain.Session {
	turns := make([]domain.Turn, 0, len(s.Turns))
	for _, turn := range s.Turns {
		turns = append(turns, domain.Turn{
			Role:      domain.Role(turn.Role),
			Content:   turn.Content,
			Timestamp: parseTime(turn.Timestamp),
		})
	}
	return domain.Session{
		GuildID:        s.GuildID,
		UserID:         s.UserID,
		ChannelID:      s.ChannelID,
		Turns:          turns,
		Active:         s.Active,
		PrivateDefault: s.PrivateDefault,
		Mode:           s.Mode,
		UpdatedAt:      parseTime(s.UpdatedAt),
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.Format(time.RFC3339)
}
