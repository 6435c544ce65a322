// Package fs provides the engine's filesystem access behind the
// sweep.FileManager interface so tests can substitute a fake.
package fs

import (
	"fmt"
	"io"
	"os"

	"sweeper/internal/sweep"
)

// Manager implements sweep.FileManager over the real filesystem.
type Manager struct{}

var _ sweep.FileManager = (*Manager)(nil)

func NewManager() *Manager { return &Manager{} }

func (*Manager) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (*Manager) Open(path string) (io.ReadCloser, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %q: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("statting %q: %w", path, err)
	}
	return f, info.Size(), nil
}

func (*Manager) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing %q: %w", path, err)
	}
	return nil
}
