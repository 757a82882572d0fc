package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logiqbot/keypool/internal/domain"
)

func poolCredential(name string, minuteCount, dayCount int, now time.Time) domain.Credential {
	return domain.Credential{
		GuildID:           1,
		Name:              name,
		Fingerprint:       "abcd1234:cdef",
		RPMLimit:          20,
		RPDLimit:          200,
		MinuteWindowStart: now,
		MinuteWindowCount: minuteCount,
		DayWindowStart:    now,
		DayWindowCount:    dayCount,
		Enabled:           true,
	}
}

func TestRenderEmptyPool(t *testing.T) {
	output, err := Render(nil, RenderOptions{Now: time.Now()})
	require.NoError(t, err)
	assert.Contains(t, output, "keys: 0")
	assert.Contains(t, output, "No keys configured")
}

func TestRenderSingleKey(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	output, err := Render([]domain.Credential{
		poolCredential("primary", 5, 42, now),
	}, RenderOptions{Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "keys: 1")
	assert.Contains(t, output, "primary (abcd1234:cdef)")
	assert.Contains(t, output, "rpm:")
	assert.Contains(t, output, "5/20")
	assert.Contains(t, output, "rpd:")
	assert.Contains(t, output, "42/200")
	assert.Contains(t, output, "[")
	assert.Contains(t, output, "]")
	assert.NotContains(t, output, "disabled")
	assert.NotContains(t, output, "cooldown")
}

func TestRenderMultipleKeys(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	output, err := Render([]domain.Credential{
		poolCredential("primary", 1, 10, now),
		poolCredential("backup", 0, 0, now),
	}, RenderOptions{Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "keys: 2")
	assert.Contains(t, output, "primary")
	assert.Contains(t, output, "backup")
}

func TestRenderDisabledKey(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	cred := poolCredential("revoked", 0, 0, now)
	cred.Enabled = false
	cred.LastErrorCode = 401
	cred.LastError = "invalid api key"

	output, err := Render([]domain.Credential{cred}, RenderOptions{Now: now})
	require.NoError(t, err)
	assert.Contains(t, output, "[disabled]")
	assert.Contains(t, output, "last error: 401 invalid api key")
}

func TestRenderCoolingKey(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	cred := poolCredential("throttled", 20, 50, now)
	cred.CooldownUntil = now.Add(12 * time.Second)

	output, err := Render([]domain.Credential{cred}, RenderOptions{Now: now})
	require.NoError(t, err)
	assert.Contains(t, output, "[cooldown 12s]")
}

func TestRenderExpiredWindowShowsZeroUsage(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	cred := poolCredential("idle", 20, 0, now)
	cred.MinuteWindowStart = now.Add(-2 * time.Minute)

	output, err := Render([]domain.Credential{cred}, RenderOptions{Now: now})
	require.NoError(t, err)
	// The minute window lapsed, so the stale count is not shown.
	assert.Contains(t, output, "0/20")
}

func TestRenderShowsNotes(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	cred := poolCredential("primary", 0, 0, now)
	cred.Notes = "billing account two"

	output, err := Render([]domain.Credential{cred}, RenderOptions{Now: now})
	require.NoError(t, err)
	assert.Contains(t, output, "notes: billing account two")
}
