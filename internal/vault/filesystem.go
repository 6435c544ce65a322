// Package vault implements the pre-delete stash: a copy of every photo is
// written to a vault before its file is permanently removed.
package vault

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"sweeper/internal/sweep"
)

// FilesystemVault stashes photos as files under a directory. Writes go to
// a temp file first and are renamed into place, so a crash never leaves a
// partial stash entry.
type FilesystemVault struct {
	dir    string
	logger sweep.Logger
}

var _ sweep.Vault = (*FilesystemVault)(nil)

func NewFilesystemVault(dir string, logger sweep.Logger) *FilesystemVault {
	return &FilesystemVault{dir: dir, logger: logger}
}

func (v *FilesystemVault) ValidateSetup() error {
	if err := os.MkdirAll(v.dir, 0o755); err != nil {
		return fmt.Errorf("creating stash directory %q: %w", v.dir, err)
	}
	return nil
}

func (v *FilesystemVault) StashPhoto(id int64, name string, r io.Reader, size int64) error {
	target := filepath.Join(v.dir, stashKey(id, name))
	tmp, err := os.CreateTemp(v.dir, ".stash-*")
	if err != nil {
		return fmt.Errorf("creating stash temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("writing stash copy of photo %d: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing stash temp file: %w", err)
	}
	if size > 0 && n != size {
		return fmt.Errorf("stash copy of photo %d is %d bytes, want %d", id, n, size)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("placing stash copy of photo %d: %w", id, err)
	}
	v.logger.Debug("stashed photo", "id", id, "target", target, "bytes", n)
	return nil
}

// stashKey names a stash entry: the media id keeps entries unique even when
// basenames repeat across folders.
func stashKey(id int64, name string) string {
	return fmt.Sprintf("%d-%s", id, filepath.Base(name))
}
