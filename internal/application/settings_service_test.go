package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logiqbot/keypool/internal/domain"
)

func TestSettingsGetCreatesDefaults(t *testing.T) {
	t.Parallel()

	repo := newMemSettingsRepo()
	svc := NewSettingsService(repo, newFakeClock(testBase))

	settings, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, settings.Enabled)
	assert.Equal(t, domain.DefaultModelID, settings.DefaultModelID)
	assert.Equal(t, domain.DefaultMaxConcurrent, settings.MaxConcurrent)

	// The defaults are persisted, not just returned.
	stored, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, settings.DefaultModelID, stored.DefaultModelID)
}

func TestSettingsGetSelfHealsAllowlist(t *testing.T) {
	t.Parallel()

	broken := domain.DefaultGuildSettings(1)
	broken.DefaultModelID = "acme/custom-model"
	broken.ModelAllowlist = []string{"deepseek/deepseek-chat:free"}
	repo := newMemSettingsRepo(broken)
	svc := NewSettingsService(repo, newFakeClock(testBase))

	settings, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, settings.ModelAllowed("acme/custom-model"))

	stored, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, stored.ModelAllowed("acme/custom-model"))
}

func TestSettingsSetEnabled(t *testing.T) {
	t.Parallel()

	svc := NewSettingsService(newMemSettingsRepo(), newFakeClock(testBase))

	settings, err := svc.SetEnabled(context.Background(), 1, true)
	require.NoError(t, err)
	assert.True(t, settings.Enabled)
}

func TestSettingsSetLimits(t *testing.T) {
	t.Parallel()

	svc := NewSettingsService(newMemSettingsRepo(), newFakeClock(testBase))

	settings, err := svc.SetLimits(context.Background(), 1, 30, 15, 4)
	require.NoError(t, err)
	assert.Equal(t, 30, settings.UserCooldownSeconds)
	assert.Equal(t, 15, settings.ChannelCooldownSeconds)
	assert.Equal(t, 4, settings.MaxConcurrent)

	_, err = svc.SetLimits(context.Background(), 1, 0, 15, 4)
	assert.Error(t, err)
	_, err = svc.SetLimits(context.Background(), 1, 30, 15, 0)
	assert.Error(t, err)
}

func TestSettingsSetSessionMaxTurns(t *testing.T) {
	t.Parallel()

	svc := NewSettingsService(newMemSettingsRepo(), newFakeClock(testBase))

	settings, err := svc.SetSessionMaxTurns(context.Background(), 1, 25)
	require.NoError(t, err)
	assert.Equal(t, 25, settings.SessionMaxTurns)

	_, err = svc.SetSessionMaxTurns(context.Background(), 1, 0)
	assert.Error(t, err)
}

func TestSettingsSetDefaultModel(t *testing.T) {
	t.Parallel()

	svc := NewSettingsService(newMemSettingsRepo(), newFakeClock(testBase))

	settings, err := svc.SetDefaultModel(context.Background(), 1, "google/gemini-2.0-flash-exp:free", false)
	require.NoError(t, err)
	assert.Equal(t, "google/gemini-2.0-flash-exp:free", settings.DefaultModelID)

	_, err = svc.SetDefaultModel(context.Background(), 1, "openai/gpt-4o", false)
	assert.ErrorIs(t, err, ErrPaidModelNotConfirmed)

	settings, err = svc.SetDefaultModel(context.Background(), 1, "openai/gpt-4o", true)
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o", settings.DefaultModelID)
	assert.True(t, settings.ModelAllowed("openai/gpt-4o"))

	_, err = svc.SetDefaultModel(context.Background(), 1, "  ", true)
	assert.Error(t, err)
}

func TestSettingsChannelAllowlist(t *testing.T) {
	t.Parallel()

	svc := NewSettingsService(newMemSettingsRepo(), newFakeClock(testBase))

	settings, err := svc.AllowChannel(context.Background(), 1, 100)
	require.NoError(t, err)
	assert.True(t, settings.ChannelAllowed(100))

	// Allowing twice does not duplicate the entry.
	settings, err = svc.AllowChannel(context.Background(), 1, 100)
	require.NoError(t, err)
	assert.Len(t, settings.AllowedChannelIDs, 1)

	settings, err = svc.AllowChannel(context.Background(), 1, 200)
	require.NoError(t, err)
	assert.True(t, settings.ChannelAllowed(200))

	settings, err = svc.DisallowChannel(context.Background(), 1, 100)
	require.NoError(t, err)
	assert.False(t, settings.ChannelAllowed(100))
	assert.True(t, settings.ChannelAllowed(200))
}
