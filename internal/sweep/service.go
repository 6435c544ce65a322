package sweep

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"sweeper/internal/model"
)

// defaultDrainTimeout bounds how long shutdown waits for queued work.
const defaultDrainTimeout = 5 * time.Second

// Service is the engine's process root. It owns the store mutation queue,
// the shared engine lock, the event bus and the group view cache, and wires
// the scanner and grouper over them. All store mutations flow through the
// queue or through a triage session's queue; both serialize on the engine
// lock.
type Service struct {
	store    Store
	source   MediaSource
	files    FileManager
	perms    PermissionGate
	vault    Vault // may be nil when no stash is configured
	settings Settings
	clock    Clock
	ids      IDGenerator
	logger   Logger

	bus     *Bus
	cache   *GroupViewCache
	scanner *Scanner
	grouper *Grouper
	queue   *OpQueue

	mu sync.Mutex // the shared engine lock
}

func NewService(store Store, source MediaSource, files FileManager, perms PermissionGate, vault Vault, settings Settings, clock Clock, ids IDGenerator, logger Logger) *Service {
	s := &Service{
		store:    store,
		source:   source,
		files:    files,
		perms:    perms,
		vault:    vault,
		settings: settings,
		clock:    clock,
		ids:      ids,
		logger:   logger,
		bus:      NewBus(),
	}
	s.cache = NewGroupViewCache(logger)
	s.grouper = NewGrouper(store, s.cache, s.bus, settings, logger, &s.mu)
	s.scanner = NewScanner(store, source, files, s.grouper, settings, clock, logger, &s.mu)
	s.queue = NewOpQueue(logger)
	return s
}

// Bus exposes the event bus for subscribers.
func (s *Service) Bus() *Bus { return s.bus }

// Scan runs a full reconciliation pass synchronously, serialized behind any
// queued work.
func (s *Service) Scan(ctx context.Context) (model.ScanStats, error) {
	if err := s.checkScanAllowed(); err != nil {
		return model.ScanStats{}, err
	}
	var (
		stats model.ScanStats
		err   error
	)
	done := make(chan struct{})
	if !s.queue.Enqueue(func() {
		defer close(done)
		stats, err = s.scanner.Scan(ctx)
	}) {
		return model.ScanStats{}, fmt.Errorf("service is shutting down")
	}
	<-done
	return stats, err
}

// ScanAsync queues a full reconciliation pass and returns immediately.
func (s *Service) ScanAsync() error {
	if err := s.checkScanAllowed(); err != nil {
		return err
	}
	if !s.queue.Enqueue(func() {
		if _, err := s.scanner.Scan(context.Background()); err != nil {
			s.logger.Error("media scan failed", "error", err)
		}
	}) {
		return fmt.Errorf("service is shutting down")
	}
	return nil
}

func (s *Service) checkScanAllowed() error {
	if !s.perms.HasScanPermission() {
		s.logger.Error("scan refused, media read permission missing")
		s.bus.Publish(PermissionRequired{Op: PermissionOpScan})
		return fmt.Errorf("scanning media index: %w", ErrPermissionDenied)
	}
	return nil
}

// UpdatePhotoStatus persists one status change synchronously.
func (s *Service) UpdatePhotoStatus(id int64, status model.Status) error {
	done := make(chan struct{})
	var err error
	if !s.queue.Enqueue(func() {
		defer close(done)
		err = s.applyStatusChange(id, status)
	}) {
		return fmt.Errorf("service is shutting down")
	}
	<-done
	return err
}

// UpdatePhotoStatusAsync queues one status change.
func (s *Service) UpdatePhotoStatusAsync(id int64, status model.Status) {
	s.queue.Enqueue(func() {
		if err := s.applyStatusChange(id, status); err != nil {
			s.logger.Error("updating photo status", "id", id, "error", err)
		}
	})
}

// applyStatusChange is the single write path for status transitions. It
// updates the record, refreshes the affected month and year buckets, and
// publishes the change. A record whose file has disappeared is removed
// instead; the next aggregation repairs its buckets.
func (s *Service) applyStatusChange(id int64, status model.Status) error {
	s.mu.Lock()
	existing, err := s.store.GetPhotoByID(id)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("loading photo %d: %w", id, err)
	}
	if existing == nil {
		s.mu.Unlock()
		return fmt.Errorf("photo %d not found", id)
	}
	old := existing.Status

	if !s.files.Exists(existing.Path) {
		if err := s.store.DeletePhoto(id); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("removing record for missing file %q: %w", existing.Path, err)
		}
		s.mu.Unlock()
		s.logger.Warn("file gone, removed record instead of updating status",
			"id", id, "path", existing.Path)
		return nil
	}

	if err := s.store.UpdatePhotoStatus(id, status); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("updating status of photo %d: %w", id, err)
	}
	photo := *existing
	photo.Status = status

	key := photo.Key()
	if err := s.grouper.updateOne(key); err != nil {
		s.logger.Error("updating month group", "key", key.String(), "error", err)
	}
	if err := s.grouper.updateOne(key.YearKey()); err != nil {
		s.logger.Error("updating year group", "key", key.Year, "error", err)
	}
	s.mu.Unlock()

	s.bus.Publish(PhotoStatusChanged{ID: id, OldStatus: old, NewStatus: status, Photo: photo})
	s.publishTrashCount()
	return nil
}

// Groups returns the group listing for t in the user's sort order, served
// from cache when fresh.
func (s *Service) Groups(t model.GroupType) ([]model.PhotoGroup, error) {
	asc := s.settings.Ascending()
	if groups, ok := s.cache.Get(t, asc); ok {
		return groups, nil
	}
	groups, err := s.store.GroupsByType(t, asc)
	if err != nil {
		return nil, fmt.Errorf("listing %s groups: %w", t, err)
	}
	s.cache.Put(t, asc, groups)
	return groups, nil
}

// Group returns one group by rendered key, or (nil, nil) when absent.
func (s *Service) Group(key string) (*model.PhotoGroup, error) {
	if g, ok := s.cache.GetGroup(key); ok {
		return &g, nil
	}
	g, err := s.store.GroupByKey(key)
	if err != nil {
		return nil, fmt.Errorf("loading group %q: %w", key, err)
	}
	if g == nil {
		return nil, nil
	}
	s.cache.PutGroup(*g)
	return g, nil
}

// Photos returns the photos of a bucket ordered by capture time per the
// user's sort preference. Pending photos not yet visible in the store are
// merged in at the head, newest first, without duplicates.
func (s *Service) Photos(group model.PhotoGroup, pending []model.Photo) ([]model.Photo, error) {
	photos, err := s.store.PhotosByGroup(group.Key())
	if err != nil {
		return nil, fmt.Errorf("listing photos of group %q: %w", group.GroupKey, err)
	}
	if s.settings.Ascending() {
		sort.SliceStable(photos, func(i, j int) bool { return photos[i].TakenAt < photos[j].TakenAt })
	} else {
		sort.SliceStable(photos, func(i, j int) bool { return photos[i].TakenAt > photos[j].TakenAt })
	}
	if len(pending) == 0 {
		return photos, nil
	}
	present := make(map[int64]bool, len(photos))
	for _, p := range photos {
		present[p.ID] = true
	}
	merged := make([]model.Photo, 0, len(photos)+len(pending))
	for _, p := range pending {
		if !present[p.ID] {
			merged = append(merged, p)
		}
	}
	return append(merged, photos...), nil
}

// TrashedPhotos lists every photo currently marked for trash.
func (s *Service) TrashedPhotos() ([]model.Photo, error) {
	photos, err := s.store.PhotosByStatus(model.StatusTrashed)
	if err != nil {
		return nil, fmt.Errorf("listing trashed photos: %w", err)
	}
	return photos, nil
}

// TrashCount returns the current number of trashed photos.
func (s *Service) TrashCount() (int, error) {
	return s.store.CountAllByStatus(model.StatusTrashed)
}

// DeletePhotosPermanently removes the files and records of the given
// photos. Each photo is stashed to the vault first when one is configured.
// Only photos whose file deletion succeeded lose their record; failures
// stay for a retry.
func (s *Service) DeletePhotosPermanently(ids []int64) (model.DeleteResult, error) {
	if !s.perms.HasDeletePermission() {
		s.logger.Error("delete refused, delete permission missing")
		s.bus.Publish(PermissionRequired{Op: PermissionOpDelete})
		return model.DeleteResult{}, fmt.Errorf("deleting photos: %w", ErrPermissionDenied)
	}
	if len(ids) == 0 {
		return model.DeleteResult{}, nil
	}
	var res model.DeleteResult
	done := make(chan struct{})
	if !s.queue.Enqueue(func() {
		defer close(done)
		res = s.deletePermanently(ids)
	}) {
		return model.DeleteResult{}, fmt.Errorf("service is shutting down")
	}
	<-done
	return res, nil
}

func (s *Service) deletePermanently(ids []int64) model.DeleteResult {
	var res model.DeleteResult

	s.mu.Lock()
	photos, err := s.store.GetPhotosByIDs(ids)
	s.mu.Unlock()
	if err != nil {
		s.logger.Error("loading photos for permanent delete", "error", err)
		res.Failed = len(ids)
		return res
	}
	if len(photos) == 0 {
		s.logger.Warn("no records found for permanent delete", "requested", len(ids))
		return res
	}

	var deleted []int64
	var affected []model.GroupKey
	seen := make(map[model.GroupKey]bool)
	for _, p := range photos {
		if !s.deletePhotoFile(p) {
			res.Failed++
			continue
		}
		res.Succeeded++
		deleted = append(deleted, p.ID)
		for _, key := range []model.GroupKey{p.Key(), p.Key().YearKey()} {
			if !seen[key] {
				seen[key] = true
				affected = append(affected, key)
			}
		}
	}

	if len(deleted) > 0 {
		s.mu.Lock()
		if _, err := s.store.DeletePhotosByIDs(deleted); err != nil {
			s.logger.Error("deleting records after file removal", "count", len(deleted), "error", err)
		}
		for _, key := range affected {
			if err := s.grouper.updateOne(key); err != nil {
				s.logger.Error("updating group after delete", "key", key.String(), "error", err)
			}
		}
		s.mu.Unlock()
		s.bus.Publish(ReloadGroups{Keys: affected})
	}

	s.logger.Info("permanent delete finished",
		"requested", len(ids), "succeeded", res.Succeeded, "failed", res.Failed)
	s.publishTrashCount()
	return res
}

// deletePhotoFile removes one file, stashing it first when a vault is
// configured. Falls back to deletion through the media source when the
// direct removal fails. A file that is already gone counts as deleted.
func (s *Service) deletePhotoFile(p model.Photo) bool {
	if !s.files.Exists(p.Path) {
		return true
	}
	if s.vault != nil {
		s.stashPhoto(p)
	}
	err := s.files.Remove(p.Path)
	if err == nil {
		return true
	}
	s.logger.Warn("direct file delete failed, trying media source", "id", p.ID, "path", p.Path, "error", err)
	if err := s.source.DeleteByID(p.ID); err != nil {
		s.logger.Error("media source delete failed", "id", p.ID, "error", err)
		return false
	}
	return true
}

func (s *Service) stashPhoto(p model.Photo) {
	rc, size, err := s.files.Open(p.Path)
	if err != nil {
		s.logger.Warn("opening photo for stash", "id", p.ID, "path", p.Path, "error", err)
		return
	}
	defer rc.Close()
	if err := s.vault.StashPhoto(p.ID, filepath.Base(p.Path), rc, size); err != nil {
		s.logger.Warn("stashing photo before delete", "id", p.ID, "error", err)
	}
}

func (s *Service) publishTrashCount() {
	count, err := s.store.CountAllByStatus(model.StatusTrashed)
	if err != nil {
		s.logger.Error("counting trashed photos", "error", err)
		return
	}
	s.bus.Publish(TrashCountChanged{Size: count})
}

// GroupType returns the user's current group type preference.
func (s *Service) GroupType() model.GroupType { return s.settings.GroupType() }

// SetGroupType persists the group type preference.
func (s *Service) SetGroupType(t model.GroupType) error { return s.settings.SetGroupType(t) }

// Ascending returns the user's sort order preference.
func (s *Service) Ascending() bool { return s.settings.Ascending() }

// SetAscending persists the sort order preference.
func (s *Service) SetAscending(asc bool) error { return s.settings.SetAscending(asc) }

// LastScanAt returns the time of the last completed scan.
func (s *Service) LastScanAt() time.Time { return s.settings.LastScanAt() }

// Close drains queued work within the drain timeout and closes the store.
// Work that has not started when the timeout expires is dropped.
func (s *Service) Close() error {
	var errs []error
	if err := s.queue.Close(defaultDrainTimeout); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutting down service: %v", errs)
	}
	return nil
}
