// Package metrics exposes refresh counters for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "channelvault"

// Metrics groups the collectors updated by the aggregation engine.
type Metrics struct {
	Refreshes       *prometheus.CounterVec
	SourceFetches   *prometheus.CounterVec
	CatalogChannels prometheus.Gauge
	RefreshDuration prometheus.Histogram

	gatherer prometheus.Gatherer
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		Refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Catalog refreshes by outcome.",
		}, []string{"outcome"}),
		SourceFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetch_total",
			Help:      "Playlist fetches by source and status.",
		}, []string{"source", "status"}),
		CatalogChannels: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_channels",
			Help:      "Channels in the most recently built catalog.",
		}),
		RefreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Wall time of a refresh cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		gatherer: reg,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
