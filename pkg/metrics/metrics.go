package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LinksChecked       *prometheus.CounterVec
	ContentMatches     *prometheus.CounterVec
	ArchiveLookups     *prometheus.CounterVec
	ArchiveSubmissions *prometheus.CounterVec
	ProbeDuration      *prometheus.HistogramVec
	DiscoveryQueueSize prometheus.Gauge

	initOnce sync.Once
)

// Init registers the pipeline metric vectors with the default registry.
// Safe to call more than once; registration happens a single time.
func Init() {
	initOnce.Do(func() {
		LinksChecked = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "links_checked_total",
				Help: "Total number of link liveness checks.",
			},
			[]string{"outcome"}, // outcome: active, inactive
		)

		ContentMatches = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_matches_total",
				Help: "Content match results by the heuristic that decided them.",
			},
			[]string{"reason"}, // exact, surname, fuzzy, token, none
		)

		ArchiveLookups = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archive_lookups_total",
				Help: "Snapshot availability lookups.",
			},
			[]string{"outcome"}, // found, missing, error
		)

		ArchiveSubmissions = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archive_submissions_total",
				Help: "Snapshot save submissions.",
			},
			[]string{"outcome"}, // saved, failed
		)

		ProbeDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "probe_duration_seconds",
				Help:    "Duration of liveness probes.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"method"},
		)

		DiscoveryQueueSize = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "discovery_queue_size",
				Help: "Current number of profile URLs in the discovery queue.",
			},
		)
	})
}
