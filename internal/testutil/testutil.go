// Package testutil provides fakes and helpers shared by tests.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"sweeper/internal/database"
	"sweeper/internal/model"
	"sweeper/internal/sweep"
)

// FakeClock returns a fixed time, advanced manually.
type FakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewFakeClock(t time.Time) *FakeClock { return &FakeClock{t: t} }

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// SequenceIDs generates "id-1", "id-2", ...
type SequenceIDs struct {
	mu sync.Mutex
	n  int
}

func (s *SequenceIDs) New() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("id-%d", s.n)
}

// FakeMediaSource serves a fixed entry list and records deletions.
type FakeMediaSource struct {
	mu      sync.Mutex
	entries []sweep.MediaEntry
	err     error
	deleted []int64
	FailIDs map[int64]bool // ids whose DeleteByID fails
}

func NewFakeMediaSource(entries ...sweep.MediaEntry) *FakeMediaSource {
	return &FakeMediaSource{entries: entries, FailIDs: map[int64]bool{}}
}

func (f *FakeMediaSource) SetEntries(entries []sweep.MediaEntry) {
	f.mu.Lock()
	f.entries = entries
	f.mu.Unlock()
}

func (f *FakeMediaSource) SetError(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *FakeMediaSource) Entries(context.Context) ([]sweep.MediaEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]sweep.MediaEntry, len(f.entries))
	copy(out, f.entries)
	return out, nil
}

func (f *FakeMediaSource) DeleteByID(id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailIDs[id] {
		return fmt.Errorf("media source cannot delete %d", id)
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *FakeMediaSource) Deleted() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, len(f.deleted))
	copy(out, f.deleted)
	return out
}

// FakeFileManager is an in-memory filesystem keyed by path.
type FakeFileManager struct {
	mu       sync.Mutex
	files    map[string][]byte
	noRemove map[string]bool // paths whose Remove fails
}

func NewFakeFileManager() *FakeFileManager {
	return &FakeFileManager{files: map[string][]byte{}, noRemove: map[string]bool{}}
}

func (f *FakeFileManager) AddFile(path string, data []byte) {
	f.mu.Lock()
	f.files[path] = data
	f.mu.Unlock()
}

func (f *FakeFileManager) RemoveFile(path string) {
	f.mu.Lock()
	delete(f.files, path)
	f.mu.Unlock()
}

func (f *FakeFileManager) FailRemove(path string) {
	f.mu.Lock()
	f.noRemove[path] = true
	f.mu.Unlock()
}

func (f *FakeFileManager) Exists(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[path]
	return ok
}

func (f *FakeFileManager) Open(path string) (io.ReadCloser, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[path]
	if !ok {
		return nil, 0, fmt.Errorf("open %q: no such file", path)
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (f *FakeFileManager) Remove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.noRemove[path] {
		return fmt.Errorf("remove %q: operation not permitted", path)
	}
	if _, ok := f.files[path]; !ok {
		return fmt.Errorf("remove %q: no such file", path)
	}
	delete(f.files, path)
	return nil
}

// FakePermissions is a static permission gate.
type FakePermissions struct {
	Scan   bool
	Delete bool
}

func (p *FakePermissions) HasScanPermission() bool   { return p.Scan }
func (p *FakePermissions) HasDeletePermission() bool { return p.Delete }

// MemorySettings implements sweep.Settings in memory.
type MemorySettings struct {
	mu        sync.Mutex
	groupType model.GroupType
	ascending bool
	lastScan  time.Time
}

var _ sweep.Settings = (*MemorySettings)(nil)

func NewMemorySettings() *MemorySettings {
	return &MemorySettings{groupType: model.GroupTypeMonth}
}

func (s *MemorySettings) GroupType() model.GroupType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groupType
}

func (s *MemorySettings) SetGroupType(t model.GroupType) error {
	s.mu.Lock()
	s.groupType = t
	s.mu.Unlock()
	return nil
}

func (s *MemorySettings) Ascending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ascending
}

func (s *MemorySettings) SetAscending(asc bool) error {
	s.mu.Lock()
	s.ascending = asc
	s.mu.Unlock()
	return nil
}

func (s *MemorySettings) LastScanAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastScan
}

func (s *MemorySettings) SetLastScanAt(t time.Time) error {
	s.mu.Lock()
	s.lastScan = t
	s.mu.Unlock()
	return nil
}

// NewTestDatabase opens an in-memory database with the current schema
// applied and closes it when the test ends.
func NewTestDatabase(t *testing.T) *database.SQLiteStore {
	t.Helper()
	db, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	if _, err := db.Exec(database.Schema); err != nil {
		t.Fatalf("applying schema: %v", err)
	}
	store := database.NewSQLiteStore(db)
	t.Cleanup(func() { store.Close() })
	return store
}
