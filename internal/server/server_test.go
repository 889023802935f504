package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voyagen/channelvault/internal/catalog"
	"github.com/voyagen/channelvault/internal/config"
	"github.com/voyagen/channelvault/internal/fetcher"
	"github.com/voyagen/channelvault/internal/metrics"
	"github.com/voyagen/channelvault/internal/models"
	"github.com/voyagen/channelvault/internal/service"
)

const playlist = `#EXTM3U
#EXTINF:-1 tvg-id="cnn.us" tvg-logo="http://logo/cnn.png" group-title="News",CNN
http://stream/cnn
#EXTINF:-1 group-title="Sports",ESPN
http://stream/espn
`

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(playlist))
	}))
	t.Cleanup(upstream.Close)

	cfg := config.Default()
	cfg.Cache.Enabled = false
	cfg.Sources.URLs = []config.SourceEntry{{URL: upstream.URL, Name: "Upstream"}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	agg := service.NewAggregator(cfg, fetcher.New(cfg.Sources.M3UPath, 0), nil, m, logger)
	ref := service.NewRefresher(agg, catalog.NewPublished(), cfg.Refresh, logger)
	ref.Load(context.Background())

	srv := New(cfg, ref, m, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)
	var body map[string]any
	if code := getJSON(t, ts.URL+"/api/health", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["status"] != "ok" || body["channels"] != float64(2) {
		t.Errorf("body = %v", body)
	}
}

func TestChannels(t *testing.T) {
	_, ts := newTestServer(t)

	var all []models.Channel
	if code := getJSON(t, ts.URL+"/api/channels", &all); code != http.StatusOK || len(all) != 2 {
		t.Fatalf("status = %d, channels = %+v", code, all)
	}
	if all[0].SourceName != "Upstream" || all[0].TvgID != "cnn.us" {
		t.Errorf("channel = %+v", all[0])
	}

	var sports []models.Channel
	getJSON(t, ts.URL+"/api/channels?category=Sports", &sports)
	if len(sports) != 1 || sports[0].Name != "ESPN" {
		t.Errorf("sports = %+v", sports)
	}

	var none []models.Channel
	getJSON(t, ts.URL+"/api/channels?category=Nope", &none)
	if none == nil || len(none) != 0 {
		t.Errorf("unknown category = %+v, want []", none)
	}

	var one models.Channel
	if code := getJSON(t, ts.URL+"/api/channels/2", &one); code != http.StatusOK || one.Name != "ESPN" {
		t.Errorf("GET /api/channels/2 = %d %+v", code, one)
	}

	var apiErr APIError
	if code := getJSON(t, ts.URL+"/api/channels/99", &apiErr); code != http.StatusNotFound || apiErr.Status != 404 {
		t.Errorf("missing channel = %d %+v", code, apiErr)
	}
	if code := getJSON(t, ts.URL+"/api/channels/abc", &apiErr); code != http.StatusBadRequest {
		t.Errorf("bad id = %d", code)
	}
}

func TestCategoriesAndServerInfo(t *testing.T) {
	_, ts := newTestServer(t)

	var cats []string
	getJSON(t, ts.URL+"/api/categories", &cats)
	if len(cats) != 2 || cats[0] != "News" || cats[1] != "Sports" {
		t.Errorf("categories = %v", cats)
	}

	var info catalog.ServerInfo
	getJSON(t, ts.URL+"/api/server-info", &info)
	if info.ChannelCount != 2 || info.CategoryCount != 2 || !info.AutoRefresh {
		t.Errorf("info = %+v", info)
	}
	if len(info.Sources) != 1 || info.SourceStats["source_0"].Status != models.StatusSuccess {
		t.Errorf("sources = %+v, stats = %+v", info.Sources, info.SourceStats)
	}
}

func TestRefreshAndDiff(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/refresh", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	var out refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || out.Channels != 2 || out.Diff.Unchanged != 2 {
		t.Errorf("refresh = %d %+v", resp.StatusCode, out)
	}

	var diff struct {
		Summary   models.DiffSummary `json:"summary"`
		Unchanged []models.Channel   `json:"unchanged"`
	}
	getJSON(t, ts.URL+"/api/diff", &diff)
	if diff.Summary.Unchanged != 2 || len(diff.Unchanged) != 2 {
		t.Errorf("diff = %+v", diff)
	}
}

func TestGuide(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/guide.xml")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "application/xml") {
		t.Errorf("Content-Type = %q", resp.Header.Get("Content-Type"))
	}
	for _, want := range []string{`<channel id="cnn.us">`, `<channel id="2">`, `<icon src="http://logo/cnn.png">`} {
		if !strings.Contains(string(body), want) {
			t.Errorf("guide missing %q", want)
		}
	}
}

func TestMetricsAndCORS(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "channelvault_catalog_channels 2") {
		t.Errorf("metrics missing catalog gauge:\n%s", body)
	}

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/channels", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent || resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("preflight = %d %v", resp.StatusCode, resp.Header)
	}
}

func TestDocs(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/docs/openapi.yaml", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/api/channels") {
		t.Errorf("openapi = %d", rec.Code)
	}
}
