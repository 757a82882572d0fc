package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/logiqbot/keypool/internal/domain"
	"github.com/logiqbot/keypool/internal/ports"
)

const (
	SystemPrompt = "You are a helpful assistant in a Discord server. Be concise. " +
		"Do not mention system messages."

	MaxPromptChars      = 2000
	MaxCompletionTokens = 500
	DefaultTemperature  = 0.7
)

var (
	ErrGuildDisabled     = errors.New("ai is not enabled for this guild")
	ErrChannelNotAllowed = errors.New("ai is not allowed in this channel")
	ErrEmptyPrompt       = errors.New("prompt is empty")
	ErrPromptTooLong     = fmt.Errorf("prompt must be under %d characters", MaxPromptChars)
	ErrMassMentions      = errors.New("prompt may not include @everyone or @here")
	ErrGuildBusy         = errors.New("too many AI requests in flight for this guild")
)

// CooldownError reports an unmet per-user or per-channel cooldown.
type CooldownError struct {
	Scope     CooldownScope
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s cooldown active, try again in %ds", e.Scope, int(e.Remaining.Seconds())+1)
}

type AskRequest struct {
	GuildID   int64
	UserID    int64
	ChannelID int64

	Prompt string
	Mode   string
	// Private overrides the session's stored privacy default when set.
	Private *bool

	UseSession    bool
	SessionActive bool
}

type AskResponse struct {
	Text    string
	ModelID string
	Private bool
}

// ChatService runs the full request pipeline: admission checks, cooldown
// commit, concurrency gate, session load and trim, payload build, failover
// dispatch, and session persistence.
type ChatService struct {
	settings   *SettingsService
	sessions   ports.SessionRepository
	dispatcher *Dispatcher
	gate       *Gate
	cooldowns  *CooldownTracker
	clock      ports.Clock
	log        *zap.Logger

	maxTokens   int
	temperature float64
}

func NewChatService(settings *SettingsService, sessions ports.SessionRepository, dispatcher *Dispatcher, gate *Gate, cooldowns *CooldownTracker, clock ports.Clock, log *zap.Logger) *ChatService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatService{
		settings:    settings,
		sessions:    sessions,
		dispatcher:  dispatcher,
		gate:        gate,
		cooldowns:   cooldowns,
		clock:       clock,
		log:         log,
		maxTokens:   MaxCompletionTokens,
		temperature: DefaultTemperature,
	}
}

// WithGenerationLimits overrides the completion token budget and sampling
// temperature. Temperature is clamped to [0, 2].
func (s *ChatService) WithGenerationLimits(maxTokens int, temperature float64) *ChatService {
	if maxTokens >= 1 {
		s.maxTokens = maxTokens
	}
	s.temperature = min(max(temperature, 0), 2)
	return s
}

func (s *ChatService) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	settings, err := s.settings.Get(ctx, req.GuildID)
	if err != nil {
		return AskResponse{}, err
	}
	if !settings.Enabled {
		return AskResponse{}, ErrGuildDisabled
	}
	if !settings.ChannelAllowed(req.ChannelID) {
		return AskResponse{}, ErrChannelNotAllowed
	}

	prompt := req.Prompt
	if strings.TrimSpace(prompt) == "" {
		return AskResponse{}, ErrEmptyPrompt
	}
	if len(prompt) > MaxPromptChars {
		return AskResponse{}, ErrPromptTooLong
	}
	if containsMassMentions(prompt) {
		return AskResponse{}, ErrMassMentions
	}

	userCooldown := time.Duration(settings.UserCooldownSeconds) * time.Second
	channelCooldown := time.Duration(settings.ChannelCooldownSeconds) * time.Second
	if remaining, scope, blocked := s.cooldowns.Check(req.GuildID, req.UserID, req.ChannelID, userCooldown, channelCooldown); blocked {
		return AskResponse{}, &CooldownError{Scope: scope, Remaining: remaining}
	}

	if !s.gate.Acquire(req.GuildID, settings.MaxConcurrent) {
		return AskResponse{}, ErrGuildBusy
	}
	defer s.gate.Release(req.GuildID)

	// Committed before dispatch so a failed upstream call still consumes
	// the cooldown.
	s.cooldowns.Commit(req.GuildID, req.UserID, req.ChannelID)

	session := domain.Session{
		GuildID:   req.GuildID,
		UserID:    req.UserID,
		ChannelID: req.ChannelID,
		Active:    req.SessionActive,
	}
	if req.Private != nil {
		session.PrivateDefault = *req.Private
	}
	if req.UseSession {
		stored, err := s.sessions.Get(ctx, req.GuildID, req.UserID, req.ChannelID)
		switch {
		case err == nil:
			session = stored
			if req.Private != nil {
				session.PrivateDefault = *req.Private
			}
		case errors.Is(err, domain.ErrSessionNotFound):
		default:
			return AskResponse{}, fmt.Errorf("load session: %w", err)
		}
	}

	history := domain.TrimTurns(session.Turns, settings.SessionMaxTurns)

	modelID := settings.DefaultModelID
	if !settings.ModelAllowed(modelID) {
		modelID = domain.DefaultModelID
	}

	mode := req.Mode
	if mode == "" {
		mode = session.Mode
	}
	if mode != "fast" && mode != "think" {
		mode = settings.DefaultMode
	}

	payload := s.buildPayload(modelID, mode, history, prompt)

	text, err := s.dispatcher.Dispatch(ctx, req.GuildID, payload)
	if err != nil {
		return AskResponse{}, err
	}

	now := s.clock.Now()
	session.Turns = append(history,
		domain.Turn{Role: domain.RoleUser, Content: prompt, Timestamp: now},
		domain.Turn{Role: domain.RoleAssistant, Content: text, Timestamp: now},
	)
	session.Turns = domain.TrimTurns(session.Turns, settings.SessionMaxTurns)
	session.Mode = mode
	session.UpdatedAt = now

	if req.UseSession {
		if err := s.sessions.Upsert(ctx, session); err != nil {
			s.log.Warn("failed to persist session",
				zap.Int64("guild_id", req.GuildID),
				zap.Int64("user_id", req.UserID),
				zap.Error(err))
		}
	}

	return AskResponse{Text: text, ModelID: modelID, Private: session.PrivateDefault}, nil
}

// StartSession opens (or replaces) an active session for the channel with
// an empty history.
func (s *ChatService) StartSession(ctx context.Context, guildID, userID, channelID int64, private bool) error {
	existing, err := s.sessions.GetActive(ctx, guildID, userID)
	if err == nil && existing.ChannelID != channelID {
		return fmt.Errorf("an active session already exists in channel %d", existing.ChannelID)
	}
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return fmt.Errorf("look up active session: %w", err)
	}

	return s.sessions.Upsert(ctx, domain.Session{
		GuildID:        guildID,
		UserID:         userID,
		ChannelID:      channelID,
		Active:         true,
		PrivateDefault: private,
		UpdatedAt:      s.clock.Now(),
	})
}

// ResetSession deletes the stored history; it reports whether one existed.
func (s *ChatService) ResetSession(ctx context.Context, guildID, userID, channelID int64) (bool, error) {
	return s.sessions.Delete(ctx, guildID, userID, channelID)
}

func (s *ChatService) buildPayload(modelID, mode string, history []domain.Turn, prompt string) ChatPayload {
	messages := make([]ChatMessage, 0, len(history)+2)
	messages = append(messages, ChatMessage{Role: "system", Content: SystemPrompt})
	for _, turn := range history {
		messages = append(messages, ChatMessage{Role: string(turn.Role), Content: turn.Content})
	}
	messages = append(messages, ChatMessage{Role: "user", Content: prompt})

	payload := ChatPayload{
		Model:       modelID,
		Messages:    messages,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	}
	if mode == "think" {
		payload.Reasoning = &ReasoningOptions{Effort: "high"}
	}
	return payload
}

func containsMassMentions(text string) bool {
	return strings.Contains(text, "@everyone") || strings.Contains(text, "@here")
}
