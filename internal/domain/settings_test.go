package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultGuildSettingsDisabledByDefault(t *testing.T) {
	t.Parallel()

	settings := DefaultGuildSettings(42)
	assert.False(t, settings.Enabled)
	assert.Equal(t, int64(42), settings.GuildID)
	assert.True(t, settings.ModelAllowed(settings.DefaultModelID))
}

func TestNormalizeFillsZeroFields(t *testing.T) {
	t.Parallel()

	settings := GuildSettings{GuildID: 42}
	changed := settings.Normalize()

	require.True(t, changed)
	assert.Equal(t, DefaultModelID, settings.DefaultModelID)
	assert.Equal(t, DefaultMaxConcurrent, settings.MaxConcurrent)
	assert.Equal(t, DefaultSessionMaxTurns, settings.SessionMaxTurns)
	assert.NotEmpty(t, settings.ModelAllowlist)
}

func TestNormalizeSelfHealsAllowlist(t *testing.T) {
	t.Parallel()

	settings := DefaultGuildSettings(42)
	settings.DefaultModelID = "custom/model"
	require.False(t, settings.ModelAllowed("custom/model"))

	changed := settings.Normalize()

	assert.True(t, changed)
	assert.True(t, settings.ModelAllowed("custom/model"))
}

func TestNormalizeStableWhenComplete(t *testing.T) {
	t.Parallel()

	settings := DefaultGuildSettings(42)
	require.False(t, settings.Normalize())
}
