package sweep

import (
	"context"
	"io"
	"time"

	"sweeper/internal/model"
)

// MediaEntry is one row of the external media index as seen by a scan.
type MediaEntry struct {
	ID      int64  // stable external media identifier
	Path    string // absolute file path
	TakenAt int64  // capture time, milliseconds since epoch; <= 0 means unknown
}

// MediaSource enumerates the external media index. The source is the
// authority on which photos exist; the store mirrors it.
type MediaSource interface {
	Entries(ctx context.Context) ([]MediaEntry, error)

	// DeleteByID removes the media item through the source itself. Used as
	// a fallback when deleting the file directly fails.
	DeleteByID(id int64) error
}

// FileManager is the slice of filesystem access the engine needs.
type FileManager interface {
	Exists(path string) bool
	Open(path string) (io.ReadCloser, int64, error)
	Remove(path string) error
}

// PermissionGate answers whether the engine is allowed to read the media
// index or delete files. Denials surface as PermissionRequired events.
type PermissionGate interface {
	HasScanPermission() bool
	HasDeletePermission() bool
}

// Vault stashes a copy of a photo before permanent deletion. Stashing is
// best effort: a vault failure does not block the delete.
type Vault interface {
	StashPhoto(id int64, name string, r io.Reader, size int64) error
	ValidateSetup() error
}

// Settings holds the small set of user preferences the engine reads.
type Settings interface {
	GroupType() model.GroupType
	SetGroupType(t model.GroupType) error
	Ascending() bool
	SetAscending(asc bool) error
	LastScanAt() time.Time
	SetLastScanAt(t time.Time) error
}
