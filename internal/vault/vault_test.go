package vault_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sweeper/internal/config"
	"sweeper/internal/sweep"
	"sweeper/internal/vault"
)

func TestFilesystemVaultStash(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	v := vault.NewFilesystemVault(dir, sweep.NewNopLogger())
	require.NoError(t, v.ValidateSetup())

	payload := []byte("jpeg bytes")
	require.NoError(t, v.StashPhoto(7, "/photos/sunset.jpg", bytes.NewReader(payload), int64(len(payload))))

	got, err := os.ReadFile(filepath.Join(dir, "7-sunset.jpg"))
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFilesystemVaultRejectsShortWrite(t *testing.T) {
	t.Parallel()
	v := vault.NewFilesystemVault(t.TempDir(), sweep.NewNopLogger())
	require.NoError(t, v.ValidateSetup())

	err := v.StashPhoto(1, "a.jpg", bytes.NewReader([]byte("ab")), 10)
	require.Error(t, err)
}

func TestMemoryVault(t *testing.T) {
	t.Parallel()
	v := vault.NewMemoryVault()
	require.NoError(t, v.ValidateSetup())
	require.NoError(t, v.StashPhoto(1, "a.jpg", bytes.NewReader([]byte("x")), 1))

	data, ok := v.Entry(1, "a.jpg")
	require.True(t, ok)
	assert.Equal(t, []byte("x"), data)
	assert.Equal(t, 1, v.Len())
}

func TestFactory(t *testing.T) {
	t.Parallel()
	logger := sweep.NewNopLogger()

	v, err := vault.New(context.Background(), config.StashConfig{Type: "none"}, logger)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = vault.New(context.Background(), config.StashConfig{Type: "filesystem", Dir: t.TempDir()}, logger)
	require.NoError(t, err)
	assert.NotNil(t, v)

	_, err = vault.New(context.Background(), config.StashConfig{Type: "tape"}, logger)
	require.Error(t, err)
}
