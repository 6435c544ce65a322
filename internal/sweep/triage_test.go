package sweep_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sweeper/internal/model"
	"sweeper/internal/sweep"
)

func newTriageFixture(t *testing.T) (*fixture, *sweep.TriageSession) {
	t.Helper()
	f := newFixture(t)
	f.addPhoto(1, at(2024, time.January, 5))
	f.addPhoto(2, at(2024, time.January, 10))
	f.addPhoto(3, at(2024, time.January, 20))
	_, err := f.svc.Scan(context.Background())
	require.NoError(t, err)

	session, err := f.svc.NewTriageSession("2024-Jan")
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return f, session
}

func photoByID(photos []model.Photo, id int64) (model.Photo, bool) {
	for _, p := range photos {
		if p.ID == id {
			return p, true
		}
	}
	return model.Photo{}, false
}

func TestTriageSessionLoadsGroup(t *testing.T) {
	t.Parallel()
	_, session := newTriageFixture(t)
	assert.Len(t, session.Photos(), 3)
	assert.Equal(t, 3, session.Remaining())
	assert.False(t, session.CanUndo())
	assert.Equal(t, "2024-Jan", session.Group().GroupKey)
}

func TestTriageSessionUnknownGroup(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	_, err := f.svc.NewTriageSession("1999-Jan")
	require.Error(t, err)
}

func TestTriageDecidePersistsAndCounts(t *testing.T) {
	t.Parallel()
	f, session := newTriageFixture(t)
	photos := session.Photos()

	target, ok := photoByID(photos, 3)
	require.True(t, ok)
	session.Decide(target, model.StatusTrashed)

	// Optimistic state is visible before the write lands.
	assert.Equal(t, 1, session.Group().TrashCount)
	assert.Equal(t, 2, session.Remaining())
	assert.True(t, session.CanUndo())

	require.NoError(t, session.Drain(5*time.Second))
	p, err := f.store.GetPhotoByID(3)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, model.StatusTrashed, p.Status)

	jan := mustGroup(t, f, "2024-Jan")
	assert.Equal(t, 1, jan.TrashCount)
}

func TestTriageUndoRoundTrip(t *testing.T) {
	t.Parallel()
	f, session := newTriageFixture(t)
	target, _ := photoByID(session.Photos(), 2)

	session.Decide(target, model.StatusKeep)
	require.True(t, session.Undo())
	require.NoError(t, session.Drain(5*time.Second))

	p, err := f.store.GetPhotoByID(2)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNormal, p.Status)

	assert.Equal(t, 0, session.Group().KeepCount)
	assert.Equal(t, 3, session.Remaining())
	assert.False(t, session.CanUndo())

	restored, ok := photoByID(session.Photos(), 2)
	require.True(t, ok)
	assert.Equal(t, model.StatusNormal, restored.Status)
}

func TestTriageMultiLevelUndo(t *testing.T) {
	t.Parallel()
	f, session := newTriageFixture(t)

	for _, id := range []int64{1, 2, 3} {
		p, _ := photoByID(session.Photos(), id)
		session.Decide(p, model.StatusTrashed)
	}
	require.NoError(t, session.Drain(5*time.Second))
	assert.Equal(t, 0, session.Remaining())
	assert.Equal(t, 3, session.Group().TrashCount)

	// Undo unwinds in reverse decision order.
	for i := 0; i < 3; i++ {
		require.True(t, session.Undo())
	}
	require.NoError(t, session.Drain(5*time.Second))

	assert.Equal(t, 3, session.Remaining())
	assert.Equal(t, 0, session.Group().TrashCount)
	for _, id := range []int64{1, 2, 3} {
		p, err := f.store.GetPhotoByID(id)
		require.NoError(t, err)
		assert.Equal(t, model.StatusNormal, p.Status)
	}
	assert.False(t, session.CanUndo())
}

func TestTriageUndoWithEmptyHistory(t *testing.T) {
	t.Parallel()
	_, session := newTriageFixture(t)
	assert.False(t, session.Undo())
}

func TestTriageUndoSecondLevelRestoresPriorDecision(t *testing.T) {
	t.Parallel()
	f, session := newTriageFixture(t)
	target, _ := photoByID(session.Photos(), 1)

	// Two decisions on the same photo; one undo returns to the first.
	session.Decide(target, model.StatusKeep)
	decided, _ := photoByID(session.Photos(), 1)
	session.Decide(decided, model.StatusTrashed)
	require.True(t, session.Undo())
	require.NoError(t, session.Drain(5*time.Second))

	p, err := f.store.GetPhotoByID(1)
	require.NoError(t, err)
	assert.Equal(t, model.StatusKeep, p.Status)

	inSession, _ := photoByID(session.Photos(), 1)
	assert.Equal(t, model.StatusKeep, inSession.Status)
}

func TestTriageRapidDecisionsApplyInOrder(t *testing.T) {
	t.Parallel()
	f, session := newTriageFixture(t)
	target, _ := photoByID(session.Photos(), 2)

	// Alternate rapidly; the queue guarantees the last decision wins in
	// the store no matter how slow individual writes are.
	for i := 0; i < 10; i++ {
		session.Decide(target, model.StatusKeep)
		require.True(t, session.Undo())
	}
	session.Decide(target, model.StatusTrashed)
	require.NoError(t, session.Drain(5*time.Second))

	p, err := f.store.GetPhotoByID(2)
	require.NoError(t, err)
	assert.Equal(t, model.StatusTrashed, p.Status)
	assert.Equal(t, 1, session.Group().TrashCount)
	assert.Equal(t, 0, session.Group().KeepCount)
}

func TestTriageDecideOutsideWorkingList(t *testing.T) {
	t.Parallel()
	f, session := newTriageFixture(t)

	ghost := model.Photo{ID: 99, Path: "/photos/ghost.jpg", YearGroup: "2024", MonthGroup: "Jan"}
	session.Decide(ghost, model.StatusTrashed)

	// Counters and the working list are untouched, but the decision is
	// still undoable.
	assert.Equal(t, 0, session.Group().TrashCount)
	assert.Len(t, session.Photos(), 3)
	assert.True(t, session.CanUndo())
	require.NoError(t, session.Drain(5*time.Second))

	require.True(t, session.Undo())
	require.NoError(t, session.Drain(5*time.Second))
	restored, ok := photoByID(session.Photos(), 99)
	require.True(t, ok, "undo reinserts the snapshot at the head")
	assert.Equal(t, restored.ID, session.Photos()[0].ID)

	p, err := f.store.GetPhotoByID(99)
	require.NoError(t, err)
	assert.Nil(t, p, "store never saw the phantom photo")
}

func TestTriageInvalidDecisionIgnored(t *testing.T) {
	t.Parallel()
	_, session := newTriageFixture(t)
	target, _ := photoByID(session.Photos(), 1)
	session.Decide(target, model.StatusNormal)
	assert.False(t, session.CanUndo())
	assert.Equal(t, 3, session.Remaining())
}

func TestTriageCloseFlushesDecisions(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addPhoto(1, at(2024, time.January, 5))
	_, err := f.svc.Scan(context.Background())
	require.NoError(t, err)
	session, err := f.svc.NewTriageSession("2024-Jan")
	require.NoError(t, err)

	target, _ := photoByID(session.Photos(), 1)
	session.Decide(target, model.StatusKeep)
	require.NoError(t, session.Close())

	p, err := f.store.GetPhotoByID(1)
	require.NoError(t, err)
	assert.Equal(t, model.StatusKeep, p.Status)
	assert.False(t, session.CanUndo())
}

func TestTriagePublishesSnapshots(t *testing.T) {
	t.Parallel()
	f, session := newTriageFixture(t)
	rec := recordEvents(f.svc.Bus())

	target, _ := photoByID(session.Photos(), 1)
	session.Decide(target, model.StatusTrashed)
	require.NoError(t, session.Drain(5*time.Second))

	e, ok := rec.last("PhotosChanged")
	require.True(t, ok)
	snapshot := e.(sweep.PhotosChanged).Photos
	decided, ok := photoByID(snapshot, 1)
	require.True(t, ok)
	assert.Equal(t, model.StatusTrashed, decided.Status)
	require.True(t, rec.has("GroupUpdated"))
}
