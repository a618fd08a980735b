// internal/metrics/metrics.go

// Package metrics holds the Prometheus collectors for the fusion engine
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geointel_feed_fetches_total",
		Help: "Feed fetches by source and outcome (ok, failed, discarded)",
	}, []string{"source", "outcome"})
	FetchDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geointel_feed_fetch_duration_ms",
		Help:    "Feed fetch duration in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}, []string{"source"})
	MalformedRecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geointel_malformed_records_total",
		Help: "Feed records dropped during normalization",
	}, []string{"source"})
	DiffEntitiesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geointel_diff_entities_total",
		Help: "Entities carried in diffs by source and operation",
	}, []string{"source", "op"})
	EntitiesCurrent = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "geointel_entities",
		Help: "Authoritative entities currently held per source",
	}, []string{"source"})
	TrailsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geointel_trail_segments_created_total",
		Help: "Trail segments created",
	})
	TrailsExpiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geointel_trail_segments_expired_total",
		Help: "Trail segments removed by the expiry sweep",
	})
	TrailsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geointel_trail_segments_active",
		Help: "Trail segments currently alive",
	})
	ThreatScore = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geointel_threat_score",
		Help: "Current composite threat score (0-100)",
	})
	EventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geointel_events_published_total",
		Help: "Outbound events delivered to sinks by type and outcome",
	}, []string{"type", "outcome"})
)

func init() {
	prometheus.MustRegister(FetchesTotal)
	prometheus.MustRegister(FetchDurationMs)
	prometheus.MustRegister(MalformedRecordsTotal)
	prometheus.MustRegister(DiffEntitiesTotal)
	prometheus.MustRegister(EntitiesCurrent)
	prometheus.MustRegister(TrailsCreatedTotal)
	prometheus.MustRegister(TrailsExpiredTotal)
	prometheus.MustRegister(TrailsActive)
	prometheus.MustRegister(ThreatScore)
	prometheus.MustRegister(EventsPublishedTotal)
}

// Handler exposes the registered collectors for scraping
func Handler() http.Handler { return promhttp.Handler() }
