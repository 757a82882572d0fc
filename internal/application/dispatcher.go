package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/logiqbot/keypool/internal/domain"
	"github.com/logiqbot/keypool/internal/ports"
)

const (
	// maxKeyAttempts caps the failover loop independently of pool size,
	// trading exhaustiveness for latency.
	maxKeyAttempts = 3

	rateLimitCooldown = 30 * time.Second
	transientCooldown = 20 * time.Second

	maxErrorTextLen = 600

	completionsPath = "/chat/completions"
)

var ErrNoEligibleKeys = errors.New("no available AI keys; ask an admin to add or enable keys")

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ReasoningOptions struct {
	Effort string `json:"effort"`
}

type ChatPayload struct {
	Model       string            `json:"model"`
	Messages    []ChatMessage     `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	Temperature float64           `json:"temperature"`
	Reasoning   *ReasoningOptions `json:"reasoning,omitempty"`
}

// Dispatcher ranks a guild's credential pool and drives the bounded
// failover loop against the upstream completion API.
type Dispatcher struct {
	creds    ports.CredentialRepository
	cipher   ports.SecretCipher
	client   ports.CompletionClient
	notifier ports.OperatorNotifier
	clock    ports.Clock
	log      *zap.Logger
}

func NewDispatcher(creds ports.CredentialRepository, cipher ports.SecretCipher, client ports.CompletionClient, notifier ports.OperatorNotifier, clock ports.Clock, log *zap.Logger) *Dispatcher {
	if notifier == nil {
		notifier = ports.NopNotifier{}
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		creds:    creds,
		cipher:   cipher,
		client:   client,
		notifier: notifier,
		clock:    clock,
		log:      log,
	}
}

// SelectCandidates evaluates every credential in the guild's pool and
// returns the eligible ones in preference order.
func (d *Dispatcher) SelectCandidates(ctx context.Context, guildID int64) ([]domain.Candidate, error) {
	pool, err := d.creds.List(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}

	now := d.clock.Now()
	candidates := make([]domain.Candidate, 0, len(pool))
	for _, cred := range pool {
		if candidate, ok := domain.Evaluate(cred, now); ok {
			candidates = append(candidates, candidate)
		}
	}
	domain.SortCandidates(candidates)
	return candidates, nil
}

type attemptKind int

const (
	attemptSuccess attemptKind = iota
	attemptRetry
	attemptHalt
	attemptAbort
)

type attemptResult struct {
	kind    attemptKind
	text    string
	message string
	err     error
}

// Dispatch attempts the ranked candidates in order until one succeeds. The
// returned error carries the most recent failure message when every
// attempted candidate fails.
func (d *Dispatcher) Dispatch(ctx context.Context, guildID int64, payload ChatPayload) (string, error) {
	candidates, err := d.SelectCandidates(ctx, guildID)
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", ErrNoEligibleKeys
	}

	attempts := candidates
	if len(attempts) > maxKeyAttempts {
		attempts = attempts[:maxKeyAttempts]
	}

	lastError := "upstream request failed"
	for _, candidate := range attempts {
		result := d.attempt(ctx, candidate, payload)
		switch result.kind {
		case attemptSuccess:
			return result.text, nil
		case attemptAbort:
			return "", result.err
		case attemptHalt:
			return "", errors.New(result.message)
		default:
			lastError = result.message
		}
	}

	return "", errors.New(lastError)
}

// attempt runs the full outcome protocol for one candidate: decrypt,
// optimistic usage reservation, upstream call, and the per-status state
// transition.
func (d *Dispatcher) attempt(ctx context.Context, candidate domain.Candidate, payload ChatPayload) attemptResult {
	cred := candidate.Credential

	apiKey, err := d.cipher.Decrypt(cred.EncryptedKey)
	if err != nil {
		if errors.Is(err, ports.ErrCipherUnconfigured) {
			// Misconfigured key material dooms every candidate alike.
			return attemptResult{kind: attemptAbort, err: err}
		}
		d.log.Warn("credential decryption failed",
			zap.Int64("guild_id", cred.GuildID),
			zap.String("key", cred.Name),
			zap.Error(err))
		d.recordError(ctx, cred, 0, "key decryption failed", 0, true)
		return attemptResult{kind: attemptRetry, message: "AI key decryption failed"}
	}

	d.reserveUsage(ctx, candidate)

	resp, err := d.client.Send(ctx, "POST", completionsPath, apiKey, payload)
	if err != nil {
		d.log.Warn("upstream request failed",
			zap.Int64("guild_id", cred.GuildID),
			zap.String("key", cred.Name),
			zap.Error(err))
		d.recordError(ctx, cred, 0, "upstream request failed", transientCooldown, false)
		return attemptResult{kind: attemptRetry, message: "upstream request failed, please try again"}
	}

	if resp.StatusCode == 200 {
		text, ok := extractCompletion(resp.Body)
		if ok {
			return attemptResult{kind: attemptSuccess, text: text}
		}
		message := "upstream response missing completion content"
		d.recordError(ctx, cred, resp.StatusCode, message, transientCooldown, false)
		return attemptResult{kind: attemptRetry, message: message}
	}

	errorMessage := extractErrorMessage(resp.Body)

	switch {
	case resp.StatusCode == 429:
		cooldown := rateLimitCooldown
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, parseErr := strconv.ParseFloat(retryAfter, 64); parseErr == nil {
				cooldown = time.Duration(seconds) * time.Second
			}
		}
		d.recordError(ctx, cred, resp.StatusCode, errorMessage, cooldown, false)
		return attemptResult{kind: attemptRetry, message: "AI rate limit reached, retrying with another key"}

	case resp.StatusCode == 401 || resp.StatusCode == 402:
		d.recordError(ctx, cred, resp.StatusCode, errorMessage, 0, true)
		d.notifier.CredentialDisabled(ctx, cred.GuildID, cred.Name, resp.StatusCode)
		return attemptResult{kind: attemptRetry, message: "AI key disabled due to authorization or credit error"}

	case resp.StatusCode >= 500:
		d.recordError(ctx, cred, resp.StatusCode, errorMessage, transientCooldown, false)
		return attemptResult{kind: attemptRetry, message: "upstream server error, retrying with another key"}

	default:
		// An unclassified status is likely a payload problem rather than a
		// credential problem; another key would fail the same way.
		d.recordError(ctx, cred, resp.StatusCode, errorMessage, rateLimitCooldown, false)
		return attemptResult{kind: attemptHalt, message: errorMessage}
	}
}

// reserveUsage persists the advanced window state with both counts bumped
// by one and stale error state cleared, before the upstream call is made.
// Two concurrent dispatches may both read the same pre-increment count and
// lose one update; quotas are advisory ceilings, so this optimistic write
// is accepted rather than locking around the store.
func (d *Dispatcher) reserveUsage(ctx context.Context, candidate domain.Candidate) {
	now := d.clock.Now()
	minuteCount := candidate.MinuteCount + 1
	dayCount := candidate.DayCount + 1
	minuteStart := candidate.MinuteStart
	dayStart := candidate.DayStart

	update := ports.CredentialUpdate{
		MinuteWindowStart: &minuteStart,
		MinuteWindowCount: &minuteCount,
		DayWindowStart:    &dayStart,
		DayWindowCount:    &dayCount,
		LastUsedAt:        &now,
		ClearError:        true,
		ClearCooldown:     true,
		UpdatedAt:         now,
	}
	if err := d.creds.Update(ctx, candidate.Credential.GuildID, candidate.Credential.Name, update); err != nil {
		d.log.Warn("failed to persist credential usage",
			zap.Int64("guild_id", candidate.Credential.GuildID),
			zap.String("key", candidate.Credential.Name),
			zap.Error(err))
	}
}

// recordError stores diagnostics on the credential and applies the
// per-outcome cooldown or disable. Persistence is best-effort: the
// in-progress request never aborts because a bookkeeping write failed.
func (d *Dispatcher) recordError(ctx context.Context, cred domain.Credential, code int, message string, cooldown time.Duration, disable bool) {
	now := d.clock.Now()
	message = truncate(message, maxErrorTextLen)

	update := ports.CredentialUpdate{
		LastErrorCode: &code,
		LastError:     &message,
		LastErrorAt:   &now,
		UpdatedAt:     now,
	}
	if cooldown > 0 {
		until := now.Add(cooldown)
		update.CooldownUntil = &until
	}
	if disable {
		enabled := false
		update.Enabled = &enabled
	}

	if err := d.creds.Update(ctx, cred.GuildID, cred.Name, update); err != nil {
		d.log.Warn("failed to persist credential error",
			zap.Int64("guild_id", cred.GuildID),
			zap.String("key", cred.Name),
			zap.Error(err))
	}
}

type completionBody struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func extractCompletion(body []byte) (string, bool) {
	var parsed completionBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", false
	}
	return parsed.Choices[0].Message.Content, true
}

// extractErrorMessage pulls a human-readable message out of an upstream
// error body, which may carry either {"error": {"message": ...}} or
// {"error": "..."}; anything else falls back to the truncated raw body.
func extractErrorMessage(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Error) > 0 {
		var structured struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(envelope.Error, &structured); err == nil && structured.Message != "" {
			return structured.Message
		}
		var plain string
		if err := json.Unmarshal(envelope.Error, &plain); err == nil && plain != "" {
			return plain
		}
	}
	if len(body) > 0 {
		return truncate(string(body), maxErrorTextLen)
	}
	return "upstream error"
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
