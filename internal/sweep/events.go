package sweep

import (
	"sync"

	"sweeper/internal/model"
)

// PermissionOp names the operation that was blocked on a missing permission.
type PermissionOp string

const (
	PermissionOpScan           PermissionOp = "SCAN"
	PermissionOpDelete         PermissionOp = "DELETE"
	PermissionOpSpecialSetting PermissionOp = "SPECIAL_SETTING"
)

// Event is a notification published on the Bus. Subscribers switch on the
// concrete type.
type Event interface {
	Kind() string
}

// GroupsLoaded carries the full group list after an aggregation rebuild,
// filtered to the currently selected group type.
type GroupsLoaded struct {
	Groups []model.PhotoGroup
}

// GroupUpdated carries one group whose counters or cover changed.
type GroupUpdated struct {
	Group model.PhotoGroup
}

// PhotoStatusChanged reports a persisted status transition.
type PhotoStatusChanged struct {
	ID        int64
	OldStatus model.Status
	NewStatus model.Status
	Photo     model.Photo
}

// PhotosChanged carries a fresh snapshot of a triage session's photo list.
type PhotosChanged struct {
	Photos []model.Photo
}

// ReloadGroups asks viewers to refetch the named buckets after a permanent
// delete changed them.
type ReloadGroups struct {
	Keys []model.GroupKey
}

// TrashCountChanged reports the current number of trashed photos.
type TrashCountChanged struct {
	Size int
}

// PermissionRequired reports that an operation was refused for lack of a
// permission.
type PermissionRequired struct {
	Op PermissionOp
}

func (GroupsLoaded) Kind() string       { return "GroupsLoaded" }
func (GroupUpdated) Kind() string       { return "GroupUpdated" }
func (PhotoStatusChanged) Kind() string { return "PhotoStatusChanged" }
func (PhotosChanged) Kind() string      { return "PhotosChanged" }
func (ReloadGroups) Kind() string       { return "ReloadGroups" }
func (TrashCountChanged) Kind() string  { return "TrashCountChanged" }
func (PermissionRequired) Kind() string { return "PermissionRequired" }

// Bus is a minimal in-process pub/sub. Publish calls handlers synchronously
// on the publisher's goroutine; handlers must not block.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(Event)
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Event))}
}

// Subscribe registers a handler and returns a function that removes it.
func (b *Bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers e to every current subscriber.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()
	for _, fn := range handlers {
		fn(e)
	}
}
