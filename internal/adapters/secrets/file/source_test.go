package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logiqbot/keypool/internal/ports"
)

func TestStoreAndMaterial(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "enc-secret")
	source := NewSource(path)
	ctx := context.Background()

	require.NoError(t, source.Store(ctx, "hunter2"))

	material, err := source.Material(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", material)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestMaterialMissingFile(t *testing.T) {
	t.Parallel()

	source := NewSource(filepath.Join(t.TempDir(), "absent"))
	_, err := source.Material(context.Background())
	assert.ErrorIs(t, err, ports.ErrNoKeyMaterial)
}

func TestMaterialEmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "enc-secret")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o600))

	_, err := NewSource(path).Material(context.Background())
	assert.ErrorIs(t, err, ports.ErrNoKeyMaterial)
}

func TestMaterialContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSource(filepath.Join(t.TempDir(), "x")).Material(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
