package sweep_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"sweeper/internal/model"
	"sweeper/internal/sweep"
	"sweeper/internal/testutil"
	"sweeper/internal/vault"
)

// fixture wires a Service over an in-memory database and fakes for
// everything external.
type fixture struct {
	svc    *sweep.Service
	store  sweep.Store
	source *testutil.FakeMediaSource
	files  *testutil.FakeFileManager
	perms  *testutil.FakePermissions
	vault  *vault.MemoryVault
	clock  *testutil.FakeClock
	prefs  *testutil.MemorySettings
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, testutil.NewTestDatabase(t))
}

func newFixtureWithStore(t *testing.T, store sweep.Store) *fixture {
	t.Helper()
	f := &fixture{
		store:  store,
		source: testutil.NewFakeMediaSource(),
		files:  testutil.NewFakeFileManager(),
		perms:  &testutil.FakePermissions{Scan: true, Delete: true},
		vault:  vault.NewMemoryVault(),
		clock:  testutil.NewFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)),
		prefs:  testutil.NewMemorySettings(),
	}
	f.svc = sweep.NewService(f.store, f.source, f.files, f.perms, f.vault, f.prefs,
		f.clock, &testutil.SequenceIDs{}, sweep.NewNopLogger())
	t.Cleanup(func() { f.svc.Close() })
	return f
}

// addPhoto registers a photo in both the fake index and the fake filesystem.
func (f *fixture) addPhoto(id int64, takenAt time.Time) sweep.MediaEntry {
	path := fmt.Sprintf("/photos/img-%d.jpg", id)
	entry := sweep.MediaEntry{ID: id, Path: path, TakenAt: takenAt.UnixMilli()}
	f.files.AddFile(path, []byte(fmt.Sprintf("image-%d", id)))
	entries, _ := f.source.Entries(nil)
	f.source.SetEntries(append(entries, entry))
	return entry
}

func at(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 10, 0, 0, 0, time.UTC)
}

// eventRecorder collects bus events thread-safely.
type eventRecorder struct {
	mu     sync.Mutex
	events []sweep.Event
}

func recordEvents(bus *sweep.Bus) *eventRecorder {
	r := &eventRecorder{}
	bus.Subscribe(func(e sweep.Event) {
		r.mu.Lock()
		r.events = append(r.events, e)
		r.mu.Unlock()
	})
	return r
}

func (r *eventRecorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind()
	}
	return out
}

func (r *eventRecorder) has(kind string) bool {
	for _, k := range r.kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

func (r *eventRecorder) last(kind string) (sweep.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind() == kind {
			return r.events[i], true
		}
	}
	return nil, false
}

func mustGroup(t *testing.T, f *fixture, key string) model.PhotoGroup {
	t.Helper()
	g, err := f.svc.Group(key)
	if err != nil {
		t.Fatalf("loading group %q: %v", key, err)
	}
	if g == nil {
		t.Fatalf("group %q not found", key)
	}
	return *g
}
