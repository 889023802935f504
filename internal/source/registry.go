// Package source resolves configured feeds into the ordered list of sources
// a refresh should fetch.
package source

import (
	"fmt"

	"github.com/voyagen/channelvault/internal/config"
	"github.com/voyagen/channelvault/internal/models"
)

// LegacyName is the name given to the source built from the single-URL field.
const LegacyName = "Default Source"

// EnabledSources returns the enabled sources in configuration order.
//
// Entries of the multi-source list are kept unless explicitly disabled or
// their URL is empty or the placeholder. Ids are positional (source_<index>
// of the list), so a disabled entry leaves a gap. The legacy single URL is
// consulted only when the list yields nothing.
func EnabledSources(cfg config.Sources) []models.Source {
	var sources []models.Source
	for i, e := range cfg.URLs {
		if e.Enabled != nil && !*e.Enabled {
			continue
		}
		if !usable(e.URL) {
			continue
		}
		name := e.Name
		if name == "" {
			name = fmt.Sprintf("Source %d", i+1)
		}
		sources = append(sources, models.Source{
			ID:      fmt.Sprintf("source_%d", i),
			URL:     e.URL,
			Name:    name,
			Enabled: true,
		})
	}
	if len(sources) == 0 && usable(cfg.URL) {
		sources = append(sources, models.Source{
			ID:      "source_0",
			URL:     cfg.URL,
			Name:    LegacyName,
			Enabled: true,
		})
	}
	return sources
}

func usable(url string) bool {
	return url != "" && url != models.PlaceholderURL
}
