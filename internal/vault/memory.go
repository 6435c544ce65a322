package vault

import (
	"fmt"
	"io"
	"sync"

	"sweeper/internal/sweep"
)

// MemoryVault keeps stashed photos in memory. For tests.
type MemoryVault struct {
	mu      sync.Mutex
	entries map[string][]byte
}

var _ sweep.Vault = (*MemoryVault)(nil)

func NewMemoryVault() *MemoryVault {
	return &MemoryVault{entries: make(map[string][]byte)}
}

func (v *MemoryVault) ValidateSetup() error { return nil }

func (v *MemoryVault) StashPhoto(id int64, name string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading stash copy of photo %d: %w", id, err)
	}
	v.mu.Lock()
	v.entries[stashKey(id, name)] = data
	v.mu.Unlock()
	return nil
}

// Entry returns a stashed payload by id and name.
func (v *MemoryVault) Entry(id int64, name string) ([]byte, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	data, ok := v.entries[stashKey(id, name)]
	return data, ok
}

// Len reports how many photos are stashed.
func (v *MemoryVault) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.entries)
}
