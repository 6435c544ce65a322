package sweep

import (
	"fmt"
	"sync"

	"sweeper/internal/model"
)

// Grouper maintains the persisted year and month aggregates over the photo
// table. AggregateAll rebuilds everything from scratch; updateOne refreshes
// a single bucket after a status change or delete.
type Grouper struct {
	store    Store
	cache    *GroupViewCache
	bus      *Bus
	settings Settings
	logger   Logger
	mu       *sync.Mutex // shared engine lock; public methods acquire it
}

func NewGrouper(store Store, cache *GroupViewCache, bus *Bus, settings Settings, logger Logger, mu *sync.Mutex) *Grouper {
	return &Grouper{
		store:    store,
		cache:    cache,
		bus:      bus,
		settings: settings,
		logger:   logger,
		mu:       mu,
	}
}

// AggregateAll drops all persisted groups and rebuilds them from the photo
// table, then invalidates the view cache and announces the fresh listing.
func (g *Grouper) AggregateAll() error {
	g.mu.Lock()
	loaded, err := g.aggregateAllLocked()
	g.mu.Unlock()
	if err != nil {
		return err
	}
	g.cache.InvalidateAll()
	g.bus.Publish(GroupsLoaded{Groups: loaded})
	return nil
}

func (g *Grouper) aggregateAllLocked() ([]model.PhotoGroup, error) {
	deleted, err := g.store.DeleteAllGroups()
	if err != nil {
		return nil, fmt.Errorf("clearing groups: %w", err)
	}

	years, err := g.store.AggregateYearGroups()
	if err != nil {
		return nil, fmt.Errorf("aggregating year groups: %w", err)
	}
	for i := range years {
		decorateYearGroup(&years[i])
	}
	months, err := g.store.AggregateMonthGroups()
	if err != nil {
		return nil, fmt.Errorf("aggregating month groups: %w", err)
	}
	for i := range months {
		decorateMonthGroup(&months[i])
	}

	all := make([]model.PhotoGroup, 0, len(years)+len(months))
	all = append(all, years...)
	all = append(all, months...)
	if len(all) > 0 {
		if err := g.store.InsertGroups(all); err != nil {
			return nil, fmt.Errorf("inserting %d groups: %w", len(all), err)
		}
	}
	g.logger.Info("group aggregation complete",
		"cleared", deleted, "years", len(years), "months", len(months))
	g.verifyCounts(len(years), len(months))

	if g.settings.GroupType() == model.GroupTypeYear {
		return years, nil
	}
	return months, nil
}

// verifyCounts cross-checks the persisted group counts against what was
// just written. A mismatch is logged, never fatal: the next rebuild repairs.
func (g *Grouper) verifyCounts(wantYears, wantMonths int) {
	gotYears, err := g.store.CountGroupsByType(model.GroupTypeYear)
	if err != nil {
		g.logger.Error("counting year groups", "error", err)
		return
	}
	gotMonths, err := g.store.CountGroupsByType(model.GroupTypeMonth)
	if err != nil {
		g.logger.Error("counting month groups", "error", err)
		return
	}
	if gotYears != wantYears || gotMonths != wantMonths {
		g.logger.Error("group count mismatch after aggregation",
			"want_years", wantYears, "got_years", gotYears,
			"want_months", wantMonths, "got_months", gotMonths)
	}
}

// UpdateAffected refreshes the named buckets incrementally. Per-bucket
// failures are logged and do not stop the rest.
func (g *Grouper) UpdateAffected(keys []model.GroupKey) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, key := range keys {
		if err := g.updateOne(key); err != nil {
			g.logger.Error("updating group", "key", key.String(), "error", err)
		}
	}
}

// updateOne recounts one bucket and refreshes its cover. An empty bucket is
// deleted; a bucket whose row does not exist yet, because photos landed
// between aggregation rebuilds, is created. Caller must hold the engine
// lock.
func (g *Grouper) updateOne(key model.GroupKey) error {
	group, err := g.store.GroupByKey(key.String())
	if err != nil {
		return fmt.Errorf("loading group: %w", err)
	}

	count, err := g.store.CountPhotos(key)
	if err != nil {
		return fmt.Errorf("counting photos: %w", err)
	}
	if count == 0 {
		if group == nil {
			return nil
		}
		if err := g.store.DeleteGroup(group.GroupKey, group.GroupType); err != nil {
			return fmt.Errorf("deleting empty group: %w", err)
		}
		g.cache.InvalidateFor(key.Year, key.Month)
		g.logger.Info("removed empty group", "key", key.String())
		return nil
	}

	if group == nil {
		group = &model.PhotoGroup{YearGroup: key.Year, MonthGroup: key.Month}
		if key.Month == "" {
			decorateYearGroup(group)
		} else {
			decorateMonthGroup(group)
		}
		latest, earliest, err := g.store.PhotoTimeRange(key)
		if err != nil {
			return fmt.Errorf("querying time range: %w", err)
		}
		group.LatestAt = latest
		group.EarliestAt = earliest
		g.logger.Info("creating group ahead of aggregation", "key", key.String())
	}

	trash, err := g.store.CountPhotosByStatus(key, model.StatusTrashed)
	if err != nil {
		return fmt.Errorf("counting trashed photos: %w", err)
	}
	keep, err := g.store.CountPhotosByStatus(key, model.StatusKeep)
	if err != nil {
		return fmt.Errorf("counting kept photos: %w", err)
	}
	cover, err := g.store.LatestCover(key)
	if err != nil {
		return fmt.Errorf("selecting cover: %w", err)
	}

	group.PhotoCount = count
	group.TrashCount = trash
	group.KeepCount = keep
	if cover != nil {
		group.CoverPath = cover.Path
		group.CoverID = cover.ID
	} else {
		group.CoverPath = ""
		group.CoverID = 0
	}

	if err := g.store.UpsertGroup(*group); err != nil {
		return fmt.Errorf("upserting group: %w", err)
	}
	g.cache.UpdateInPlace(*group)
	g.bus.Publish(GroupUpdated{Group: *group})
	return nil
}

func decorateYearGroup(g *model.PhotoGroup) {
	g.GroupType = model.GroupTypeYear
	g.GroupKey = g.YearGroup
	g.MonthGroup = ""
	g.DisplayName = g.YearGroup
}

func decorateMonthGroup(g *model.PhotoGroup) {
	g.GroupType = model.GroupTypeMonth
	g.GroupKey = g.YearGroup + "-" + g.MonthGroup
	g.DisplayName = g.YearGroup + " " + g.MonthGroup
}
