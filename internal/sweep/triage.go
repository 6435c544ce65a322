package sweep

import (
	"fmt"
	"sync"
	"time"

	"sweeper/internal/model"
)

// undoAction remembers one decision: the photo exactly as it was before,
// and what the user decided. Undo replays the snapshot.
type undoAction struct {
	snapshot model.Photo
	decision model.Status
}

// TriageSession drives swipe triage over one bucket. It keeps an in-memory
// working copy of the bucket's photos and group counters, applies decisions
// optimistically, and persists them through its own FIFO queue so rapid
// swipes never reorder. Every decision is undoable in reverse order until
// the session closes.
type TriageSession struct {
	id     string
	svc    *Service
	logger Logger
	queue  *OpQueue

	mu     sync.Mutex
	group  model.PhotoGroup
	photos []model.Photo
	undo   []undoAction
}

// NewTriageSession opens a session over the bucket with the given rendered
// key. The photo list is loaded up front and announced on the bus.
func (s *Service) NewTriageSession(key string) (*TriageSession, error) {
	group, err := s.Group(key)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, fmt.Errorf("group %q not found", key)
	}
	photos, err := s.Photos(*group, nil)
	if err != nil {
		return nil, fmt.Errorf("loading photos for triage: %w", err)
	}
	t := &TriageSession{
		id:     s.ids.New(),
		svc:    s,
		logger: s.logger,
		queue:  NewOpQueue(s.logger),
		group:  *group,
		photos: photos,
	}
	s.logger.Info("triage session opened", "session", t.id, "group", key, "photos", len(photos))
	s.bus.Publish(PhotosChanged{Photos: clonePhotos(photos)})
	return t, nil
}

// ID returns the session identifier.
func (t *TriageSession) ID() string { return t.id }

// Group returns the session's current view of the group, including
// optimistic counters.
func (t *TriageSession) Group() model.PhotoGroup {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.group
}

// Photos returns a copy of the session's working photo list.
func (t *TriageSession) Photos() []model.Photo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return clonePhotos(t.photos)
}

// Remaining counts the photos still awaiting a decision.
func (t *TriageSession) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, p := range t.photos {
		if p.Status == model.StatusNormal {
			n++
		}
	}
	return n
}

// CanUndo reports whether any decision is left to undo.
func (t *TriageSession) CanUndo() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.undo) > 0
}

// Decide records a keep-or-trash decision for photo. The working list and
// group counters update immediately; the store write is queued. A decision
// is pushed on the undo stack even when the photo is missing from the
// working list, so the following Undo still reverses the store write.
func (t *TriageSession) Decide(photo model.Photo, decision model.Status) {
	if decision != model.StatusKeep && decision != model.StatusTrashed {
		t.logger.Warn("ignoring decision with invalid status", "session", t.id, "status", decision.String())
		return
	}

	t.mu.Lock()
	snapshot := photo
	found := false
	for i := range t.photos {
		if t.photos[i].ID == photo.ID {
			snapshot = t.photos[i]
			t.photos[i].Status = decision
			found = true
			break
		}
	}
	t.undo = append(t.undo, undoAction{snapshot: snapshot, decision: decision})
	var (
		group      model.PhotoGroup
		photosCopy []model.Photo
	)
	if found {
		switch decision {
		case model.StatusTrashed:
			t.group.TrashCount++
		case model.StatusKeep:
			t.group.KeepCount++
		}
		group = t.group
		photosCopy = clonePhotos(t.photos)
	}
	t.mu.Unlock()

	if found {
		t.svc.bus.Publish(PhotosChanged{Photos: photosCopy})
		t.svc.bus.Publish(GroupUpdated{Group: group})
	} else {
		t.logger.Warn("decision on photo outside working list", "session", t.id, "id", photo.ID)
	}

	id := photo.ID
	t.queue.Enqueue(func() {
		if err := t.svc.applyStatusChange(id, decision); err != nil {
			t.logger.Error("persisting triage decision", "session", t.id, "id", id, "error", err)
		}
	})
}

// Undo reverses the most recent decision: the snapshot returns to the
// working list (reinserted at the head if the photo left it), the counter
// the decision bumped is decremented, and a restoring store write plus a
// group refresh are queued. Returns false when there is nothing to undo.
func (t *TriageSession) Undo() bool {
	t.mu.Lock()
	if len(t.undo) == 0 {
		t.mu.Unlock()
		t.logger.Warn("undo requested with empty history", "session", t.id)
		return false
	}
	action := t.undo[len(t.undo)-1]
	t.undo = t.undo[:len(t.undo)-1]
	restored := action.snapshot

	found := false
	for i := range t.photos {
		if t.photos[i].ID == restored.ID {
			t.photos[i] = restored
			found = true
			break
		}
	}
	if !found {
		t.photos = append([]model.Photo{restored}, t.photos...)
	}
	switch action.decision {
	case model.StatusTrashed:
		if t.group.TrashCount > 0 {
			t.group.TrashCount--
		}
	case model.StatusKeep:
		if t.group.KeepCount > 0 {
			t.group.KeepCount--
		}
	}
	group := t.group
	photosCopy := clonePhotos(t.photos)
	t.mu.Unlock()

	t.svc.bus.Publish(PhotosChanged{Photos: photosCopy})
	t.svc.bus.Publish(GroupUpdated{Group: group})

	t.queue.Enqueue(func() {
		if err := t.svc.applyStatusChange(restored.ID, restored.Status); err != nil {
			t.logger.Error("persisting undo", "session", t.id, "id", restored.ID, "error", err)
		}
		t.resyncGroup()
	})
	return true
}

// resyncGroup refreshes the session's group from the store while keeping
// the optimistic counters, which may be ahead of writes still in the queue.
func (t *TriageSession) resyncGroup() {
	t.mu.Lock()
	key := t.group.GroupKey
	t.mu.Unlock()

	fresh, err := t.svc.Group(key)
	if err != nil {
		t.logger.Error("refreshing group after undo", "session", t.id, "group", key, "error", err)
		return
	}
	if fresh == nil {
		t.logger.Warn("group vanished during triage", "session", t.id, "group", key)
		return
	}

	t.mu.Lock()
	trash, keep := t.group.TrashCount, t.group.KeepCount
	t.group = *fresh
	t.group.TrashCount = trash
	t.group.KeepCount = keep
	group := t.group
	t.mu.Unlock()

	t.svc.bus.Publish(GroupUpdated{Group: group})
}

// Drain waits for all queued session writes to land.
func (t *TriageSession) Drain(timeout time.Duration) error {
	return t.queue.Drain(timeout)
}

// Close flushes the session's queue within the drain timeout and discards
// the undo history. Decisions already queued are persisted if the timeout
// allows; anything past it is dropped.
func (t *TriageSession) Close() error {
	err := t.queue.Close(defaultDrainTimeout)
	t.mu.Lock()
	t.undo = nil
	t.photos = nil
	t.mu.Unlock()
	if err != nil {
		t.logger.Error("closing triage session", "session", t.id, "error", err)
		return fmt.Errorf("closing triage session %s: %w", t.id, err)
	}
	t.logger.Info("triage session closed", "session", t.id)
	return nil
}

func clonePhotos(photos []model.Photo) []model.Photo {
	out := make([]model.Photo, len(photos))
	copy(out, photos)
	return out
}
