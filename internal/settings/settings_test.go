package settings_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sweeper/internal/model"
	"sweeper/internal/settings"
)

func TestDefaults(t *testing.T) {
	t.Parallel()
	s, err := settings.Open(filepath.Join(t.TempDir(), "settings.toml"))
	require.NoError(t, err)

	assert.Equal(t, model.GroupTypeMonth, s.GroupType())
	assert.False(t, s.Ascending())
	assert.True(t, s.LastScanAt().IsZero())
}

func TestPersistsAcrossReopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "settings.toml")

	s, err := settings.Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetGroupType(model.GroupTypeYear))
	require.NoError(t, s.SetAscending(true))
	scanned := time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC)
	require.NoError(t, s.SetLastScanAt(scanned))

	reopened, err := settings.Open(path)
	require.NoError(t, err)
	assert.Equal(t, model.GroupTypeYear, reopened.GroupType())
	assert.True(t, reopened.Ascending())
	assert.Equal(t, scanned.UnixMilli(), reopened.LastScanAt().UnixMilli())
}

func TestUnknownGroupTypeFallsBackToMonth(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "settings.toml")
	s, err := settings.Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetGroupType(model.GroupType("WEEK")))
	assert.Equal(t, model.GroupTypeMonth, s.GroupType())
}
