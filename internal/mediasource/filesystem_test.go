package mediasource_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sweeper/internal/mediasource"
	"sweeper/internal/sweep"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("img"), 0o644))
}

func TestEntriesWalksRootsAndFiltersExtensions(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.jpg"))
	writeFile(t, filepath.Join(root, "sub", "b.PNG"))
	writeFile(t, filepath.Join(root, "notes.txt"))

	src := mediasource.NewFilesystemSource([]string{root}, []string{".jpg", ".png"}, sweep.NewNopLogger())
	entries, err := src.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2, "extension match is case-insensitive, non-images skipped")

	for _, e := range entries {
		assert.Equal(t, mediasource.PathID(e.Path), e.ID)
		assert.Positive(t, e.TakenAt)
	}
}

func TestEntriesStableIDs(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.jpg"))
	src := mediasource.NewFilesystemSource([]string{root}, []string{".jpg"}, sweep.NewNopLogger())

	first, err := src.Entries(context.Background())
	require.NoError(t, err)
	second, err := src.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestEntriesToleratesMissingRoot(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.jpg"))

	src := mediasource.NewFilesystemSource([]string{filepath.Join(root, "gone"), root}, []string{".jpg"}, sweep.NewNopLogger())
	entries, err := src.Entries(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDeleteByID(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	path := filepath.Join(root, "a.jpg")
	writeFile(t, path)

	src := mediasource.NewFilesystemSource([]string{root}, []string{".jpg"}, sweep.NewNopLogger())
	entries, err := src.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, src.DeleteByID(entries[0].ID))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.Error(t, src.DeleteByID(12345), "unknown id")
}
