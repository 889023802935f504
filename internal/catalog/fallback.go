package catalog

import (
	"time"

	"github.com/voyagen/channelvault/internal/models"
)

// Identifiers of the built-in sample source.
const (
	SampleSourceID   = "sample_source"
	SampleSourceName = "Sample Source"
)

// Fallback returns the minimal built-in catalog published when no source and
// no cache snapshot can provide channels.
func Fallback(now time.Time) *models.Catalog {
	sample := func(id int, tvgID, name, url string) models.Channel {
		return models.Channel{
			ID:         id,
			Name:       name,
			Category:   "General",
			TvgID:      tvgID,
			TvgName:    name,
			URL:        url,
			SourceID:   SampleSourceID,
			SourceName: SampleSourceName,
		}
	}
	return &models.Catalog{
		Channels: []models.Channel{
			sample(1, "sample1", "Sample Channel 1", "http://example.com/stream1.m3u8"),
			sample(2, "sample2", "Sample Channel 2", "http://example.com/stream2.m3u8"),
		},
		Categories:  []string{"General"},
		LastRefresh: now,
		SourceStats: map[string]models.SourceStat{
			SampleSourceID: {
				Name:          SampleSourceName,
				URL:           models.PlaceholderURL,
				ChannelCount:  2,
				CategoryCount: 1,
				LastRefresh:   now,
				Status:        models.StatusSuccess,
			},
		},
	}
}

// IsFallback reports whether c is the built-in sample catalog.
func IsFallback(c *models.Catalog) bool {
	if c == nil || len(c.SourceStats) != 1 {
		return false
	}
	_, ok := c.SourceStats[SampleSourceID]
	return ok
}
