// Package catalog holds the published channel catalog and the pure
// operations applied to it during a refresh (diff, filter, fallback, guide).
package catalog

import (
	"slices"
	"sync/atomic"
	"time"

	"github.com/voyagen/channelvault/internal/models"
)

// Published is the process-wide current catalog. Readers get a whole
// generation; writers replace it with Swap and never mutate it in place.
type Published struct {
	cur atomic.Pointer[models.Catalog]
}

// NewPublished returns a holder with an empty catalog.
func NewPublished() *Published {
	p := &Published{}
	p.cur.Store(&models.Catalog{
		Channels:    []models.Channel{},
		Categories:  []string{},
		SourceStats: map[string]models.SourceStat{},
	})
	return p
}

// Current returns the published generation.
func (p *Published) Current() *models.Catalog {
	return p.cur.Load()
}

// Swap publishes c and returns the generation it replaced. A nil c is ignored.
func (p *Published) Swap(c *models.Catalog) *models.Catalog {
	if c == nil {
		return p.Current()
	}
	return p.cur.Swap(c)
}

// Channels returns a copy of all channels, or only those in category when it
// is non-empty.
func (p *Published) Channels(category string) []models.Channel {
	channels := p.Current().Channels
	if category == "" {
		return slices.Clone(channels)
	}
	out := make([]models.Channel, 0)
	for _, ch := range channels {
		if ch.Category == category {
			out = append(out, ch)
		}
	}
	return out
}

// ChannelByID returns the channel with the given catalog id.
func (p *Published) ChannelByID(id int) (models.Channel, bool) {
	for _, ch := range p.Current().Channels {
		if ch.ID == id {
			return ch, true
		}
	}
	return models.Channel{}, false
}

// Categories returns a copy of the sorted category list.
func (p *Published) Categories() []string {
	return slices.Clone(p.Current().Categories)
}

// LastDiff returns the diff computed when the current generation was built,
// or nil if none was computed.
func (p *Published) LastDiff() *models.DiffResult {
	return p.Current().Diff
}

// ServerInfo describes the catalog and its sources for operators.
type ServerInfo struct {
	URL           string                       `json:"url,omitempty"` // legacy single-source field
	Sources       []models.Source              `json:"sources"`
	SourceStats   map[string]models.SourceStat `json:"sourceStats"`
	LastRefresh   time.Time                    `json:"lastRefresh"`
	ChannelCount  int                          `json:"channelCount"`
	CategoryCount int                          `json:"categoryCount"`
	AutoRefresh   bool                         `json:"autoRefresh"`
}

// ServerInfo combines the current generation with the configured sources.
func (p *Published) ServerInfo(legacyURL string, sources []models.Source, autoRefresh bool) ServerInfo {
	c := p.Current()
	if sources == nil {
		sources = []models.Source{}
	}
	return ServerInfo{
		URL:           legacyURL,
		Sources:       sources,
		SourceStats:   c.SourceStats,
		LastRefresh:   c.LastRefresh,
		ChannelCount:  len(c.Channels),
		CategoryCount: len(c.Categories),
		AutoRefresh:   autoRefresh,
	}
}
