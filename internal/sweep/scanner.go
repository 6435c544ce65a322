package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sweeper/internal/model"
)

// scanBatchFloor is the smallest batch the exhaustion recovery will retry.
const scanBatchFloor = 10

// optimalBatchSize picks a write batch size from the total entry count:
// small libraries get small batches, large ones amortize the per-batch cost.
func optimalBatchSize(total int) int {
	switch {
	case total <= 500:
		return 100
	case total <= 2000:
		return 200
	default:
		return 300
	}
}

// Scanner reconciles the external media index into the store. A scan is
// idempotent: running it twice over an unchanged index is a no-op, and
// existing records keep their triage status.
type Scanner struct {
	store    Store
	source   MediaSource
	files    FileManager
	grouper  *Grouper
	settings Settings
	clock    Clock
	logger   Logger
	mu       *sync.Mutex // serializes store mutation with the rest of the engine
}

func NewScanner(store Store, source MediaSource, files FileManager, grouper *Grouper, settings Settings, clock Clock, logger Logger, mu *sync.Mutex) *Scanner {
	return &Scanner{
		store:    store,
		source:   source,
		files:    files,
		grouper:  grouper,
		settings: settings,
		clock:    clock,
		logger:   logger,
		mu:       mu,
	}
}

// Scan walks the media index, reconciles it into the store in batches, then
// rebuilds the group aggregates.
func (s *Scanner) Scan(ctx context.Context) (model.ScanStats, error) {
	var stats model.ScanStats
	start := s.clock.Now()

	entries, err := s.source.Entries(ctx)
	if err != nil {
		return stats, fmt.Errorf("querying media source: %w", err)
	}
	if len(entries) == 0 {
		s.logger.Warn("media source returned no entries")
	}

	batchSize := optimalBatchSize(len(entries))
	batch := make([]model.Photo, 0, batchSize)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("scan canceled: %w", err)
		}
		stats.Scanned++
		photo, ok := s.reconcileEntry(e, &stats)
		if !ok {
			continue
		}
		batch = append(batch, photo)
		if len(batch) >= batchSize {
			ins, upd := s.processBatch(batch)
			stats.Inserted += ins
			stats.Updated += upd
			stats.Batches++
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		ins, upd := s.processBatch(batch)
		stats.Inserted += ins
		stats.Updated += upd
		stats.Batches++
	}

	s.logger.Info("media scan complete",
		"scanned", stats.Scanned,
		"inserted", stats.Inserted,
		"updated", stats.Updated,
		"skipped", stats.SkippedFiles,
		"deleted_records", stats.DeletedRecords,
		"batches", stats.Batches,
		"duration", time.Since(start).Round(time.Millisecond).String())

	if err := s.grouper.AggregateAll(); err != nil {
		return stats, fmt.Errorf("rebuilding groups after scan: %w", err)
	}
	if err := s.settings.SetLastScanAt(s.clock.Now()); err != nil {
		s.logger.Warn("persisting last scan time", "error", err)
	}
	return stats, nil
}

// reconcileEntry validates one index entry. Entries whose backing file is
// gone get their stale store record removed and are skipped.
func (s *Scanner) reconcileEntry(e MediaEntry, stats *model.ScanStats) (model.Photo, bool) {
	if e.Path == "" {
		s.logger.Warn("skipping media entry with empty path", "id", e.ID)
		stats.SkippedFiles++
		return model.Photo{}, false
	}
	if !s.files.Exists(e.Path) {
		stats.SkippedFiles++
		s.mu.Lock()
		existing, err := s.store.GetPhotoByID(e.ID)
		if err != nil {
			s.mu.Unlock()
			s.logger.Error("looking up stale record", "id", e.ID, "error", err)
			return model.Photo{}, false
		}
		if existing != nil {
			if err := s.store.DeletePhoto(e.ID); err != nil {
				s.logger.Error("deleting stale record", "id", e.ID, "error", err)
			} else {
				stats.DeletedRecords++
			}
		}
		s.mu.Unlock()
		return model.Photo{}, false
	}

	takenAt := e.TakenAt
	if takenAt <= 0 {
		takenAt = s.clock.Now().UnixMilli()
		s.logger.Warn("media entry has no capture time, using current time", "id", e.ID, "path", e.Path)
	}
	t := time.UnixMilli(takenAt)
	return model.Photo{
		ID:         e.ID,
		Path:       e.Path,
		TakenAt:    takenAt,
		YearGroup:  t.Format("2006"),
		MonthGroup: t.Format("Jan"),
		Status:     model.StatusNormal,
	}, true
}

// processBatch applies one batch under the engine lock. A failed batch
// contributes zero inserts and updates; the scan continues.
func (s *Scanner) processBatch(batch []model.Photo) (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ins, upd, err := s.applyBatch(batch)
	if err != nil {
		s.logger.Error("applying scan batch", "size", len(batch), "error", err)
		return 0, 0
	}
	return ins, upd
}

func (s *Scanner) applyBatch(batch []model.Photo) (int, int, error) {
	ins, upd, err := s.applyBatchOnce(batch)
	if err != nil && errors.Is(err, ErrResourceExhausted) {
		return s.recoverBatch(batch)
	}
	return ins, upd, err
}

func (s *Scanner) applyBatchOnce(batch []model.Photo) (int, int, error) {
	ids := make([]int64, len(batch))
	for i, p := range batch {
		ids[i] = p.ID
	}
	existing, err := s.store.GetPhotosByIDs(ids)
	if err != nil {
		return 0, 0, fmt.Errorf("looking up existing records: %w", err)
	}
	byID := make(map[int64]model.Photo, len(existing))
	for _, p := range existing {
		byID[p.ID] = p
	}

	var inserts, updates []model.Photo
	for _, p := range batch {
		if prior, ok := byID[p.ID]; ok {
			// Re-scans never reset a triage decision.
			p.Status = prior.Status
			updates = append(updates, p)
		} else {
			inserts = append(inserts, p)
		}
	}

	if len(inserts) > 0 {
		if err := s.store.InsertPhotos(inserts); err != nil {
			return 0, 0, fmt.Errorf("inserting %d records: %w", len(inserts), err)
		}
	}
	if len(updates) > 0 {
		if err := s.store.UpdatePhotos(updates); err != nil {
			return len(inserts), 0, fmt.Errorf("updating %d records: %w", len(updates), err)
		}
	}
	return len(inserts), len(updates), nil
}

// recoverBatch retries an exhausted batch in halves, down to scanBatchFloor.
// Safe because inserts and updates are idempotent.
func (s *Scanner) recoverBatch(batch []model.Photo) (int, int, error) {
	if len(batch) <= scanBatchFloor {
		return 0, 0, fmt.Errorf("batch of %d failed at floor size: %w", len(batch), ErrResourceExhausted)
	}
	size := len(batch) / 2
	if size < scanBatchFloor {
		size = scanBatchFloor
	}
	s.logger.Warn("store exhausted, retrying batch in halves", "size", len(batch), "retry_size", size)

	var ins, upd int
	for start := 0; start < len(batch); start += size {
		end := start + size
		if end > len(batch) {
			end = len(batch)
		}
		i, u, err := s.applyBatch(batch[start:end])
		ins += i
		upd += u
		if err != nil {
			return ins, upd, err
		}
	}
	return ins, upd, nil
}
