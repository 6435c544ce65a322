package testutil

import (
	"fmt"
	"sync"

	"sweeper/internal/model"
	"sweeper/internal/sweep"
)

// FlakyStore wraps a Store and fails InsertPhotos and UpdatePhotos with a
// resource exhaustion error whenever the batch exceeds MaxBatch. Exercises
// the scanner's batch halving.
type FlakyStore struct {
	sweep.Store

	mu       sync.Mutex
	MaxBatch int
	failures int
}

func NewFlakyStore(inner sweep.Store, maxBatch int) *FlakyStore {
	return &FlakyStore{Store: inner, MaxBatch: maxBatch}
}

func (s *FlakyStore) InsertPhotos(photos []model.Photo) error {
	if err := s.check(len(photos)); err != nil {
		return err
	}
	return s.Store.InsertPhotos(photos)
}

func (s *FlakyStore) UpdatePhotos(photos []model.Photo) error {
	if err := s.check(len(photos)); err != nil {
		return err
	}
	return s.Store.UpdatePhotos(photos)
}

func (s *FlakyStore) check(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > s.MaxBatch {
		s.failures++
		return fmt.Errorf("batch of %d too large: %w", n, sweep.ErrResourceExhausted)
	}
	return nil
}

// Failures reports how many writes were rejected.
func (s *FlakyStore) Failures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}
