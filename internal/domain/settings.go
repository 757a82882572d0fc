package domain

import "time"

const (
	DefaultModelID                = "meta-llama/llama-3.3-70b-instruct:free"
	DefaultMode                   = "fast"
	DefaultUserCooldownSeconds    = 10
	DefaultChannelCooldownSeconds = 5
	DefaultMaxConcurrent          = 2
	DefaultSessionMaxTurns        = 10
	DefaultSessionTTLSeconds      = 86400
	DefaultRPMLimit               = 20
	DefaultRPDLimit               = 200
)

var DefaultModelAllowlist = []string{
	"meta-llama/llama-3.3-70b-instruct:free",
	"deepseek/deepseek-chat:free",
	"google/gemini-2.0-flash-exp:free",
}

// GuildSettings is the per-guild dispatch policy: admission limits,
// concurrency ceiling, session bounds and the model allowlist.
type GuildSettings struct {
	GuildID           int64
	Enabled           bool
	AllowedChannelIDs []int64

	DefaultModelID string
	DefaultMode    string
	ModelAllowlist []string

	UserCooldownSeconds    int
	ChannelCooldownSeconds int
	MaxConcurrent          int

	SessionMaxTurns   int
	SessionTTLSeconds int

	UpdatedAt time.Time
}

func DefaultGuildSettings(guildID int64) GuildSettings {
	return GuildSettings{
		GuildID:                guildID,
		Enabled:                false,
		DefaultModelID:         DefaultModelID,
		DefaultMode:            DefaultMode,
		ModelAllowlist:         append([]string(nil), DefaultModelAllowlist...),
		UserCooldownSeconds:    DefaultUserCooldownSeconds,
		ChannelCooldownSeconds: DefaultChannelCooldownSeconds,
		MaxConcurrent:          DefaultMaxConcurrent,
		SessionMaxTurns:        DefaultSessionMaxTurns,
		SessionTTLSeconds:      DefaultSessionTTLSeconds,
	}
}

// Normalize fills missing fields with defaults and self-heals the model
// allowlist: the active default model is always a member, appended if
// absent. It reports whether anything changed so callers can persist the
// healed document.
func (s *GuildSettings) Normalize() bool {
	changed := false

	if s.DefaultModelID == "" {
		s.DefaultModelID = DefaultModelID
		changed = true
	}
	if s.DefaultMode == "" {
		s.DefaultMode = DefaultMode
		changed = true
	}
	if s.UserCooldownSeconds <= 0 {
		s.UserCooldownSeconds = DefaultUserCooldownSeconds
		changed = true
	}
	if s.ChannelCooldownSeconds <= 0 {
		s.ChannelCooldownSeconds = DefaultChannelCooldownSeconds
		changed = true
	}
	if s.MaxConcurrent <= 0 {
		s.MaxConcurrent = DefaultMaxConcurrent
		changed = true
	}
	if s.SessionMaxTurns <= 0 {
		s.SessionMaxTurns = DefaultSessionMaxTurns
		changed = true
	}
	if s.SessionTTLSeconds <= 0 {
		s.SessionTTLSeconds = DefaultSessionTTLSeconds
		changed = true
	}
	if len(s.ModelAllowlist) == 0 {
		s.ModelAllowlist = append([]string(nil), DefaultModelAllowlist...)
		changed = true
	}
	if !s.ModelAllowed(s.DefaultModelID) {
		s.ModelAllowlist = append(s.ModelAllowlist, s.DefaultModelID)
		changed = true
	}

	return changed
}

func (s GuildSettings) ModelAllowed(modelID string) bool {
	for _, allowed := range s.ModelAllowlist {
		if allowed == modelID {
			return true
		}
	}
	return false
}

func (s GuildSettings) ChannelAllowed(channelID int64) bool {
	for _, allowed := range s.AllowedChannelIDs {
		if allowed == channelID {
			return true
		}
	}
	return false
}
