package sweep

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"sweeper/internal/model"
)

const (
	groupCacheTTL        = 5 * time.Minute
	groupCacheMaxEntries = 10
)

// viewKey identifies one cached group listing: a type plus a sort order.
type viewKey struct {
	Type      model.GroupType
	Ascending bool
}

// GroupViewCache holds recently served group listings and single-group
// lookups. Entries expire after groupCacheTTL; the cache never serves a
// stale entry past its TTL and is bounded to groupCacheMaxEntries listings.
// All values crossing the boundary are copies, so callers can mutate what
// they get back without corrupting the cache.
type GroupViewCache struct {
	logger Logger

	// Guards multi-step operations; the LRUs are individually safe but
	// invalidation walks them.
	mu     sync.Mutex
	views  *expirable.LRU[viewKey, []model.PhotoGroup]
	single *expirable.LRU[string, model.PhotoGroup]
}

func NewGroupViewCache(logger Logger) *GroupViewCache {
	return newGroupViewCache(logger, groupCacheMaxEntries, groupCacheTTL)
}

func newGroupViewCache(logger Logger, size int, ttl time.Duration) *GroupViewCache {
	return &GroupViewCache{
		logger: logger,
		views:  expirable.NewLRU[viewKey, []model.PhotoGroup](size, nil, ttl),
		single: expirable.NewLRU[string, model.PhotoGroup](4*size, nil, ttl),
	}
}

// Get returns a copy of the cached listing for (t, ascending), if present
// and fresh.
func (c *GroupViewCache) Get(t model.GroupType, ascending bool) ([]model.PhotoGroup, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	groups, ok := c.views.Get(viewKey{Type: t, Ascending: ascending})
	if !ok {
		return nil, false
	}
	return cloneGroups(groups), true
}

// Put stores a copy of groups under (t, ascending).
func (c *GroupViewCache) Put(t model.GroupType, ascending bool, groups []model.PhotoGroup) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views.Add(viewKey{Type: t, Ascending: ascending}, cloneGroups(groups))
}

// GetGroup returns the cached single group for key, if present and fresh.
func (c *GroupViewCache) GetGroup(key string) (model.PhotoGroup, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.single.Get(key)
}

// PutGroup caches one group under its rendered key.
func (c *GroupViewCache) PutGroup(g model.PhotoGroup) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.single.Add(g.GroupKey, g)
}

// InvalidateAll drops every cached entry.
func (c *GroupViewCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views.Purge()
	c.single.Purge()
}

// InvalidateFor drops entries touching the given year, or the given month
// within the year when month is non-empty. A month invalidation also drops
// listings containing the enclosing year bucket, since its counters change
// with the month's.
func (c *GroupViewCache) InvalidateFor(year, month string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.views.Keys() {
		groups, ok := c.views.Peek(k)
		if !ok {
			continue
		}
		for _, g := range groups {
			if groupMatches(g, year, month) {
				c.views.Remove(k)
				break
			}
		}
	}
	for _, k := range c.single.Keys() {
		g, ok := c.single.Peek(k)
		if !ok {
			continue
		}
		if groupMatches(g, year, month) {
			c.single.Remove(k)
		}
	}
}

// UpdateInPlace replaces the named group inside every cached entry that
// contains it, refreshing the entry's age.
func (c *GroupViewCache) UpdateInPlace(updated model.PhotoGroup) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.views.Keys() {
		groups, ok := c.views.Peek(k)
		if !ok {
			continue
		}
		for i, g := range groups {
			if g.GroupKey == updated.GroupKey && g.GroupType == updated.GroupType {
				fresh := cloneGroups(groups)
				fresh[i] = updated
				c.views.Add(k, fresh)
				break
			}
		}
	}
	if _, ok := c.single.Peek(updated.GroupKey); ok {
		c.single.Add(updated.GroupKey, updated)
	}
}

// groupMatches reports whether g belongs to the invalidation scope
// (year, month). The year bucket itself always matches its year.
func groupMatches(g model.PhotoGroup, year, month string) bool {
	if g.YearGroup != year {
		return false
	}
	if month == "" {
		return true
	}
	return g.GroupType == model.GroupTypeYear || g.MonthGroup == month
}

func cloneGroups(groups []model.PhotoGroup) []model.PhotoGroup {
	out := make([]model.PhotoGroup, len(groups))
	copy(out, groups)
	return out
}
