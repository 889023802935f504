package source

import (
	"testing"

	"github.com/voyagen/channelvault/internal/config"
	"github.com/voyagen/channelvault/internal/models"
)

func boolPtr(b bool) *bool { return &b }

func TestEnabledSources_multiSource(t *testing.T) {
	cfg := config.Sources{
		URL: "http://legacy.example",
		URLs: []config.SourceEntry{
			{URL: "http://a.example", Name: "A"},
			{URL: "http://b.example", Enabled: boolPtr(false)},
			{URL: models.PlaceholderURL},
			{URL: ""},
			{URL: "http://e.example", Enabled: boolPtr(true)},
		},
	}
	got := EnabledSources(cfg)
	want := []models.Source{
		{ID: "source_0", URL: "http://a.example", Name: "A", Enabled: true},
		{ID: "source_4", URL: "http://e.example", Name: "Source 5", Enabled: true},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d sources, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sources[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestEnabledSources_legacyFallback(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Sources
		want int
	}{
		{"legacy only", config.Sources{URL: "http://legacy.example"}, 1},
		{"legacy placeholder", config.Sources{URL: models.PlaceholderURL}, 0},
		{"nothing", config.Sources{}, 0},
		{"list all disabled", config.Sources{
			URL:  "http://legacy.example",
			URLs: []config.SourceEntry{{URL: "http://a.example", Enabled: boolPtr(false)}},
		}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EnabledSources(tt.cfg)
			if len(got) != tt.want {
				t.Fatalf("got %d sources, want %d", len(got), tt.want)
			}
			if tt.want == 1 {
				s := got[0]
				if s.ID != "source_0" || s.Name != LegacyName || s.URL != "http://legacy.example" || !s.Enabled {
					t.Errorf("legacy source = %+v", s)
				}
			}
		})
	}
}

func TestEnabledSources_listWinsOverLegacy(t *testing.T) {
	cfg := config.Sources{
		URL:  "http://legacy.example",
		URLs: []config.SourceEntry{{URL: "http://a.example"}},
	}
	got := EnabledSources(cfg)
	if len(got) != 1 || got[0].URL != "http://a.example" {
		t.Errorf("got %+v, want only the list entry", got)
	}
}
