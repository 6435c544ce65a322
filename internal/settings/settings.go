// Package settings persists the small set of user preferences the engine
// reads: group type, sort order and the last scan time. Stored as a TOML
// file next to the database, rewritten atomically on every change.
package settings

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"sweeper/internal/model"
	"sweeper/internal/sweep"
)

type fileState struct {
	GroupType  string `toml:"group_type"`
	Ascending  bool   `toml:"ascending"`
	LastScanAt int64  `toml:"last_scan_at"` // milliseconds since epoch, 0 = never
}

// FileSettings implements sweep.Settings over a TOML file.
type FileSettings struct {
	path string

	mu    sync.Mutex
	state fileState
}

var _ sweep.Settings = (*FileSettings)(nil)

// Open loads the settings file at path, creating defaults when it does not
// exist yet.
func Open(path string) (*FileSettings, error) {
	s := &FileSettings{
		path:  path,
		state: fileState{GroupType: string(model.GroupTypeMonth)},
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading settings %q: %w", path, err)
	}
	if err := toml.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("parsing settings %q: %w", path, err)
	}
	return s, nil
}

func (s *FileSettings) GroupType() model.GroupType {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.GroupType == string(model.GroupTypeYear) {
		return model.GroupTypeYear
	}
	return model.GroupTypeMonth
}

func (s *FileSettings) SetGroupType(t model.GroupType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.GroupType = string(t)
	return s.save()
}

func (s *FileSettings) Ascending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Ascending
}

func (s *FileSettings) SetAscending(asc bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Ascending = asc
	return s.save()
}

func (s *FileSettings) LastScanAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.LastScanAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.state.LastScanAt)
}

func (s *FileSettings) SetLastScanAt(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastScanAt = t.UnixMilli()
	return s.save()
}

// save writes the state to a temp file and renames it over the target.
// Caller must hold the mutex.
func (s *FileSettings) save() error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s.state); err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing settings file: %w", err)
	}
	return nil
}
