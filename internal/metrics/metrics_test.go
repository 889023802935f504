package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetricsEndpoint(t *testing.T) {
	m := New()
	m.Refreshes.WithLabelValues("refreshed").Inc()
	m.SourceFetches.WithLabelValues("source_0", "success").Inc()
	m.CatalogChannels.Set(42)
	m.RefreshDuration.Observe(0.3)

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("Failed to get metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`channelvault_refresh_total{outcome="refreshed"} 1`,
		`channelvault_source_fetch_total{source="source_0",status="success"} 1`,
		`channelvault_catalog_channels 42`,
		`channelvault_refresh_duration_seconds_count 1`,
		`go_goroutines`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNew_independentRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a, b := New(), New()
	a.CatalogChannels.Set(1)
	b.CatalogChannels.Set(2)
}
