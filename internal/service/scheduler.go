package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/voyagen/channelvault/internal/cache"
	"github.com/voyagen/channelvault/internal/catalog"
	"github.com/voyagen/channelvault/internal/config"
	"github.com/voyagen/channelvault/internal/models"
)

// ErrRefreshInProgress is returned when a refresh is requested while another
// one is running, in this process or (with a Redis lock) in another.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// Refresh triggers.
const (
	TriggerStartup  = "startup"
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// refreshLockTTL bounds how long a crashed holder can block other instances.
const refreshLockTTL = 5 * time.Minute

// Notifier receives a summary after every refresh.
type Notifier interface {
	Notify(ctx context.Context, ev cache.RefreshEvent) error
}

// Refresher serialises refreshes and publishes their results.
type Refresher struct {
	agg      *Aggregator
	pub      *catalog.Published
	cfg      config.Refresh
	lock     *cache.Redis
	notifier Notifier
	log      *slog.Logger

	mu sync.Mutex
}

// NewRefresher returns a Refresher publishing into pub.
func NewRefresher(agg *Aggregator, pub *catalog.Published, cfg config.Refresh, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{agg: agg, pub: pub, cfg: cfg, log: logger}
}

// WithLock makes refreshes take a Redis lock so that only one instance
// sharing r refreshes at a time.
func (r *Refresher) WithLock(rd *cache.Redis) *Refresher {
	r.lock = rd
	return r
}

// WithNotifier sets the receiver of refresh events.
func (r *Refresher) WithNotifier(n Notifier) *Refresher {
	r.notifier = n
	return r
}

// Published returns the catalog holder.
func (r *Refresher) Published() *catalog.Published {
	return r.pub
}

// AutoRefresh reports whether the periodic loop is enabled.
func (r *Refresher) AutoRefresh() bool {
	return r.cfg.Enabled && r.cfg.Interval > 0
}

// Load builds and publishes the startup catalog.
func (r *Refresher) Load(ctx context.Context) *models.Catalog {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, outcome := r.agg.Load(ctx)
	r.pub.Swap(c)
	r.notify(ctx, TriggerStartup, c, outcome)
	return c
}

// Refresh runs one refresh against the published catalog and publishes the
// result. It returns ErrRefreshInProgress instead of waiting for a running one.
func (r *Refresher) Refresh(ctx context.Context, trigger string) (*models.Catalog, error) {
	if !r.mu.TryLock() {
		return nil, ErrRefreshInProgress
	}
	defer r.mu.Unlock()

	if r.lock != nil {
		lock, err := cache.Acquire(ctx, r.lock, cache.RefreshLockKey, refreshLockTTL)
		switch {
		case errors.Is(err, cache.ErrLocked):
			return nil, ErrRefreshInProgress
		case err != nil:
			r.log.Warn("refresh lock unavailable, refreshing anyway", "error", err)
		default:
			defer func() {
				if err := lock.Release(); err != nil {
					r.log.Warn("failed to release refresh lock", "error", err)
				}
			}()
		}
	}

	c, outcome := r.agg.Refresh(ctx, r.pub.Current())
	r.pub.Swap(c)
	r.notify(ctx, trigger, c, outcome)
	return c, nil
}

// Run refreshes every configured interval until ctx is cancelled. It returns
// immediately when auto refresh is disabled.
func (r *Refresher) Run(ctx context.Context) {
	if !r.AutoRefresh() {
		r.log.Info("auto refresh disabled")
		return
	}
	r.log.Info("auto refresh scheduled", "interval", r.cfg.Interval.String())
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Refresh(ctx, TriggerSchedule); err != nil {
				r.log.Warn("scheduled refresh skipped", "error", err)
			}
		}
	}
}

// Shutdown persists the published catalog so the next start can reuse it.
func (r *Refresher) Shutdown(ctx context.Context) {
	c := r.pub.Current()
	if c.Empty() || catalog.IsFallback(c) {
		return
	}
	r.log.Info("saving channel cache before shutdown", "channels", len(c.Channels))
	r.agg.Save(ctx, c)
}

func (r *Refresher) notify(ctx context.Context, trigger string, c *models.Catalog, outcome Outcome) {
	if r.notifier == nil {
		return
	}
	ev := cache.RefreshEvent{
		Trigger:       trigger,
		At:            c.LastRefresh,
		Outcome:       string(outcome),
		ChannelCount:  len(c.Channels),
		CategoryCount: len(c.Categories),
		FailedSources: failedSources(c.SourceStats),
	}
	if outcome == OutcomeRefreshed {
		ev.Diff = c.Diff.Summary()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.notifier.Notify(ctx, ev); err != nil {
		r.log.Warn("failed to publish refresh event", "error", err)
	}
}

func failedSources(stats map[string]models.SourceStat) []string {
	var names []string
	for _, s := range stats {
		if s.Failed() {
			names = append(names, s.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Sources returns the sources a refresh would fetch.
func (r *Refresher) Sources() []models.Source {
	return r.agg.Sources()
}
