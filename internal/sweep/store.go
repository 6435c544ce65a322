package sweep

import "sweeper/internal/model"

// Store persists photo records and group aggregates. Implementations must
// return (nil, nil) from single-record lookups when no row matches.
//
// InsertPhotos and UpdatePhotos must be idempotent: re-applying the same
// batch leaves the store unchanged. A write that fails because the batch is
// too large must return an error wrapping ErrResourceExhausted.
type Store interface {
	// Photo records.
	GetPhotoByID(id int64) (*model.Photo, error)
	GetPhotosByIDs(ids []int64) ([]model.Photo, error)
	InsertPhotos(photos []model.Photo) error
	UpdatePhotos(photos []model.Photo) error
	UpdatePhotoStatus(id int64, status model.Status) error
	DeletePhoto(id int64) error
	DeletePhotosByIDs(ids []int64) (int, error)

	// Photo queries. A key with an empty Month addresses the whole year.
	PhotosByGroup(key model.GroupKey) ([]model.Photo, error)
	PhotosByStatus(status model.Status) ([]model.Photo, error)
	CountPhotos(key model.GroupKey) (int, error)
	CountPhotosByStatus(key model.GroupKey, status model.Status) (int, error)
	CountAllByStatus(status model.Status) (int, error)

	// PhotoTimeRange returns the newest and oldest capture time in a
	// bucket, (0, 0) when the bucket is empty.
	PhotoTimeRange(key model.GroupKey) (latest, earliest int64, err error)

	// LatestCover picks the cover photo of a bucket: untriaged photos
	// beat kept ones, kept beat trashed, newest capture time wins within
	// a tier. Returns (nil, nil) for an empty bucket.
	LatestCover(key model.GroupKey) (*model.Photo, error)

	// Group aggregates.
	AggregateYearGroups() ([]model.PhotoGroup, error)
	AggregateMonthGroups() ([]model.PhotoGroup, error)
	DeleteAllGroups() (int, error)
	InsertGroups(groups []model.PhotoGroup) error
	UpsertGroup(group model.PhotoGroup) error
	DeleteGroup(key string, groupType model.GroupType) error
	GroupByKey(key string) (*model.PhotoGroup, error)
	GroupsByType(t model.GroupType, ascending bool) ([]model.PhotoGroup, error)
	CountGroupsByType(t model.GroupType) (int, error)

	Close() error
}
