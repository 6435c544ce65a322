package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sweeper/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMinimal(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
[library]
roots = ["/photos"]
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Dir(path), cfg.BaseDir)
	assert.Equal(t, filepath.Join(cfg.BaseDir, "logs"), cfg.LogDir)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, cfg.BaseDir, cfg.Database.DataDir)
	assert.Equal(t, "none", cfg.Stash.Type)
	assert.Contains(t, cfg.Library.Extensions, ".jpg")
	assert.False(t, cfg.Permissions.AllowDelete)
}

func TestLoadFull(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
base_dir = "/var/lib/sweeper"

[library]
roots = ["/a", "/b"]
extensions = [".jpg"]

[database]
type = "sqlite"
data_dir = "/var/lib/sweeper/db"

[stash]
type = "s3"

[stash.s3]
bucket = "stash"
region = "us-east-1"

[permissions]
allow_scan = true
allow_delete = true
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/b"}, cfg.Library.Roots)
	assert.Equal(t, "stash", cfg.Stash.S3.Bucket)
	assert.True(t, cfg.Permissions.AllowDelete)
}

func TestLoadRejectsMissingRoots(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
[library]
roots = []
`)
	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "library.roots")
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
[library]
roots = ["/photos"]
rootz = ["typo"]
`)
	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoadRejectsIncompleteStash(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
[library]
roots = ["/photos"]

[stash]
type = "filesystem"
`)
	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stash.dir")
}

func TestExampleParses(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, config.Example())
	_, err := config.Load(path)
	require.NoError(t, err)
}
