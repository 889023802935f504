package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/voyagen/channelvault/internal/models"
)

// ErrCacheMiss is returned by Load when no usable snapshot exists: nothing
// stored, too old, or without channels.
var ErrCacheMiss = errors.New("cache miss")

// DefaultMaxAge is how long a snapshot stays usable when no age is configured.
const DefaultMaxAge = time.Hour

// Store persists the last good catalog.
type Store interface {
	// Save replaces the stored snapshot with c.
	Save(ctx context.Context, c *models.Catalog) error
	// Load returns the stored catalog if it is younger than maxAge.
	Load(ctx context.Context, maxAge time.Duration) (*models.Catalog, error)
}

// Error wraps a snapshot read or write failure.
type Error struct {
	Op      string // "load" or "save"
	Backend string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cache %s (%s): %v", e.Op, e.Backend, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Snapshot is the stored form of a catalog. It is read and written whole.
type Snapshot struct {
	Channels    []models.Channel             `json:"channels"`
	Categories  []string                     `json:"categories"`
	Timestamp   time.Time                    `json:"timestamp"`
	SourceStats map[string]models.SourceStat `json:"sourceStats"`
}

// SnapshotOf captures the persisted fields of c.
func SnapshotOf(c *models.Catalog) Snapshot {
	return Snapshot{
		Channels:    c.Channels,
		Categories:  c.Categories,
		Timestamp:   c.LastRefresh,
		SourceStats: c.SourceStats,
	}
}

// Catalog converts the snapshot back to a catalog (without a diff).
func (s Snapshot) Catalog() *models.Catalog {
	c := &models.Catalog{
		Channels:    s.Channels,
		Categories:  s.Categories,
		LastRefresh: s.Timestamp,
		SourceStats: s.SourceStats,
	}
	if c.Categories == nil {
		c.Categories = []string{}
	}
	if c.SourceStats == nil {
		c.SourceStats = map[string]models.SourceStat{}
	}
	return c
}

// Usable reports whether the snapshot has channels and is younger than maxAge at now.
func (s Snapshot) Usable(now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return len(s.Channels) > 0 && now.Sub(s.Timestamp) < maxAge
}
