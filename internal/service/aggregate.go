// Package service runs catalog refresh cycles: fetch every enabled source,
// merge, diff, filter, persist and publish.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/voyagen/channelvault/internal/cache"
	"github.com/voyagen/channelvault/internal/catalog"
	"github.com/voyagen/channelvault/internal/config"
	"github.com/voyagen/channelvault/internal/fetcher"
	"github.com/voyagen/channelvault/internal/metrics"
	"github.com/voyagen/channelvault/internal/models"
	"github.com/voyagen/channelvault/internal/source"
	"golang.org/x/sync/errgroup"
)

// Outcome describes how a refresh produced its catalog.
type Outcome string

const (
	OutcomeRefreshed    Outcome = "refreshed"     // built from live sources
	OutcomeKeptPrevious Outcome = "kept_previous" // no channels fetched; previous retained
	OutcomeCache        Outcome = "cache"         // restored from the snapshot store
	OutcomeFallback     Outcome = "fallback"      // built-in sample catalog
)

// PlaylistFetcher retrieves and parses one source.
type PlaylistFetcher interface {
	FetchAndParse(ctx context.Context, src models.Source) (fetcher.ParseResult, error)
}

// Aggregator merges all enabled sources into a catalog.
type Aggregator struct {
	cfg     *config.Config
	fetcher PlaylistFetcher
	store   cache.Store // nil disables the snapshot cache
	metrics *metrics.Metrics
	log     *slog.Logger
	now     func() time.Time
}

// NewAggregator returns an Aggregator. store and m may be nil.
func NewAggregator(cfg *config.Config, f PlaylistFetcher, store cache.Store, m *metrics.Metrics, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Cache.Enabled {
		store = nil
	}
	return &Aggregator{cfg: cfg, fetcher: f, store: store, metrics: m, log: logger, now: time.Now}
}

// Sources returns the sources a refresh would fetch.
func (a *Aggregator) Sources() []models.Source {
	return source.EnabledSources(a.cfg.Sources)
}

// Load builds the initial catalog: live sources when configured, else a
// fresh cache snapshot, else the fallback catalog.
func (a *Aggregator) Load(ctx context.Context) (*models.Catalog, Outcome) {
	if len(a.Sources()) > 0 {
		return a.Refresh(ctx, nil)
	}
	if a.store != nil {
		c, err := a.store.Load(ctx, a.cfg.Cache.MaxAge)
		switch {
		case err == nil:
			a.log.Info("loaded channels from cache", "channels", len(c.Channels), "timestamp", c.LastRefresh)
			a.observeOutcome(OutcomeCache, len(c.Channels))
			return c, OutcomeCache
		case errors.Is(err, cache.ErrCacheMiss):
			a.log.Info("no usable channel cache")
		default:
			a.log.Warn("channel cache unreadable", "error", err)
		}
	}
	return a.fallback()
}

// sourceResult is the settled outcome of one source fetch.
type sourceResult struct {
	res fetcher.ParseResult
	err error
}

// Refresh fetches every enabled source concurrently and builds the next
// catalog from prev. It never fails: when nothing can be fetched it returns
// prev (with updated source stats) or the fallback catalog.
func (a *Aggregator) Refresh(ctx context.Context, prev *models.Catalog) (*models.Catalog, Outcome) {
	start := a.now()
	if a.metrics != nil {
		defer func() { a.metrics.RefreshDuration.Observe(time.Since(start).Seconds()) }()
	}

	sources := a.Sources()
	if len(sources) == 0 {
		a.log.Warn("no enabled sources found")
		if !prev.Empty() {
			a.observeOutcome(OutcomeKeptPrevious, len(prev.Channels))
			return prev, OutcomeKeptPrevious
		}
		return a.fallback()
	}

	a.log.Info("refreshing channels", "sources", len(sources))
	results := make([]sourceResult, len(sources))
	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			res, err := a.fetcher.FetchAndParse(ctx, src)
			results[i] = sourceResult{res: res, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var channels []models.Channel
	categorySet := make(map[string]struct{})
	stats := make(map[string]models.SourceStat, len(sources))
	nextID := 1
	for i, src := range sources {
		r := results[i]
		now := a.now()
		if r.err != nil {
			stats[src.ID] = models.SourceStat{
				Name:        src.Name,
				URL:         src.URL,
				LastRefresh: now,
				Status:      models.StatusFailed,
				Error:       r.err.Error(),
			}
			a.observeSource(src, models.StatusFailed)
			a.log.Error("failed to load source", "source", src.Name, "url", src.URL, "error", r.err)
			continue
		}
		for _, ch := range r.res.Channels {
			ch.ID = nextID
			nextID++
			ch.SourceID = src.ID
			ch.SourceName = src.Name
			channels = append(channels, ch)
		}
		for _, c := range r.res.Categories {
			categorySet[c] = struct{}{}
		}
		stats[src.ID] = models.SourceStat{
			Name:          src.Name,
			URL:           src.URL,
			ChannelCount:  len(r.res.Channels),
			CategoryCount: len(r.res.Categories),
			LastRefresh:   now,
			Status:        models.StatusSuccess,
		}
		a.observeSource(src, models.StatusSuccess)
		a.log.Info("loaded source", "source", src.Name, "channels", len(r.res.Channels), "categories", len(r.res.Categories))
	}

	if len(channels) == 0 {
		a.log.Warn("no channels loaded from any source")
		return a.keepPrevious(prev, stats)
	}

	categories := make([]string, 0, len(categorySet))
	for c := range categorySet {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var prevChannels []models.Channel
	if prev != nil {
		prevChannels = prev.Channels
	}
	diff := catalog.Diff(prevChannels, channels)

	if rules := a.rules(); rules.Active() {
		before := len(channels)
		channels = catalog.Filter(channels, rules)
		a.log.Info("channel filtering", "before", before, "after", len(channels))
		if len(channels) == 0 {
			a.log.Warn("filters removed every channel")
			return a.keepPrevious(prev, stats)
		}
	}

	next := &models.Catalog{
		Channels:    channels,
		Categories:  categories,
		LastRefresh: a.now(),
		SourceStats: stats,
		Diff:        &diff,
	}
	a.save(ctx, next)

	s := diff.Summary()
	a.log.Info("channels refreshed",
		"channels", len(next.Channels), "sources", len(sources), "categories", len(categories),
		"added", s.Added, "removed", s.Removed, "updated", s.Updated, "unchanged", s.Unchanged)
	a.observeOutcome(OutcomeRefreshed, len(next.Channels))
	return next, OutcomeRefreshed
}

// keepPrevious returns a copy of prev carrying this refresh's source stats,
// or the fallback catalog when prev has no channels.
func (a *Aggregator) keepPrevious(prev *models.Catalog, stats map[string]models.SourceStat) (*models.Catalog, Outcome) {
	if prev.Empty() {
		return a.fallback()
	}
	a.log.Info("keeping previous channels", "channels", len(prev.Channels))
	kept := *prev
	kept.SourceStats = stats
	a.observeOutcome(OutcomeKeptPrevious, len(kept.Channels))
	return &kept, OutcomeKeptPrevious
}

func (a *Aggregator) fallback() (*models.Catalog, Outcome) {
	a.log.Warn("creating sample channels as fallback")
	c := catalog.Fallback(a.now())
	a.observeOutcome(OutcomeFallback, len(c.Channels))
	return c, OutcomeFallback
}

// Save persists c to the snapshot store, if caching is enabled.
func (a *Aggregator) Save(ctx context.Context, c *models.Catalog) {
	a.save(ctx, c)
}

func (a *Aggregator) save(ctx context.Context, c *models.Catalog) {
	if a.store == nil || c.Empty() {
		return
	}
	if err := a.store.Save(ctx, c); err != nil {
		a.log.Error("failed to save channel cache", "error", err)
		return
	}
	a.log.Debug("channels cached", "channels", len(c.Channels))
}

func (a *Aggregator) rules() catalog.Rules {
	if !a.cfg.Filter.Enabled {
		return catalog.Rules{}
	}
	return catalog.Rules{Blacklist: a.cfg.Filter.Blacklist, Whitelist: a.cfg.Filter.Whitelist}
}

func (a *Aggregator) observeSource(src models.Source, status string) {
	if a.metrics != nil {
		a.metrics.SourceFetches.WithLabelValues(src.ID, status).Inc()
	}
}

func (a *Aggregator) observeOutcome(o Outcome, channels int) {
	if a.metrics != nil {
		a.metrics.Refreshes.WithLabelValues(string(o)).Inc()
		a.metrics.CatalogChannels.Set(float64(channels))
	}
}
