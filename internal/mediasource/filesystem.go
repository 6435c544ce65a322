// Package mediasource implements the external media index over one or more
// filesystem roots. Every image file under a root is one entry; the entry
// ID is a stable hash of the path, so re-scans see the same identifiers.
package mediasource

import (
	"context"
	"fmt"
	"hash/fnv"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"sweeper/internal/sweep"
)

// FilesystemSource implements sweep.MediaSource by walking library roots.
type FilesystemSource struct {
	roots      []string
	extensions map[string]bool
	logger     sweep.Logger

	mu    sync.Mutex
	paths map[int64]string // id -> path, filled by the last walk
}

var _ sweep.MediaSource = (*FilesystemSource)(nil)

func NewFilesystemSource(roots, extensions []string, logger sweep.Logger) *FilesystemSource {
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = true
	}
	return &FilesystemSource{
		roots:      roots,
		extensions: exts,
		logger:     logger,
		paths:      make(map[int64]string),
	}
}

// PathID returns the stable identifier for a path.
func PathID(path string) int64 {
	h := fnv.New64a()
	h.Write([]byte(path))
	return int64(h.Sum64())
}

func (s *FilesystemSource) Entries(ctx context.Context) ([]sweep.MediaEntry, error) {
	var entries []sweep.MediaEntry
	paths := make(map[int64]string)
	for _, root := range s.roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				s.logger.Warn("walking library", "path", path, "error", err)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() || !s.extensions[strings.ToLower(filepath.Ext(path))] {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				s.logger.Warn("statting library file", "path", path, "error", err)
				return nil
			}
			id := PathID(path)
			if prior, dup := paths[id]; dup {
				s.logger.Warn("path hash collision, skipping", "path", path, "colliding_with", prior)
				return nil
			}
			paths[id] = path
			entries = append(entries, sweep.MediaEntry{
				ID:      id,
				Path:    path,
				TakenAt: info.ModTime().UnixMilli(),
			})
			return nil
		})
		if err != nil {
			if os.IsNotExist(err) {
				s.logger.Warn("library root missing", "root", root)
				continue
			}
			return nil, fmt.Errorf("walking library root %q: %w", root, err)
		}
	}
	s.mu.Lock()
	s.paths = paths
	s.mu.Unlock()
	return entries, nil
}

// DeleteByID removes the file behind an entry seen by the last walk.
func (s *FilesystemSource) DeleteByID(id int64) error {
	s.mu.Lock()
	path, ok := s.paths[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("media entry %d unknown", id)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing media entry %d at %q: %w", id, path, err)
	}
	return nil
}
