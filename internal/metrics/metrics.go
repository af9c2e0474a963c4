// Package metrics exposes Prometheus instruments for connector activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup and sync outcome labels.
const (
	OutcomeFound     = "found"
	OutcomeNotFound  = "not_found"
	OutcomeTransient = "transient"
	OutcomePermanent = "permanent"
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
)

var (
	Lookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sercha_intel_lookups_total",
			Help: "Total number of agent lookups by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	LookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sercha_intel_lookup_duration_seconds",
			Help:    "Time taken by agent lookups including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	Retries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sercha_intel_retries_total",
			Help: "Total number of retried provider calls after transient failures",
		},
		[]string{"provider"},
	)

	FeedSyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sercha_intel_feed_syncs_total",
			Help: "Total number of data connector pulls by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	FeedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sercha_intel_feed_records_total",
			Help: "Total number of records returned by data connectors",
		},
		[]string{"provider"},
	)

	FeedSyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sercha_intel_feed_sync_duration_seconds",
			Help:    "Time taken by data connector pulls",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider"},
	)

	DedupDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sercha_intel_dedup_dropped_total",
			Help: "Total number of feed records dropped as already delivered",
		},
		[]string{"provider"},
	)
)

// ObserveLookup records one agent lookup.
func ObserveLookup(provider, outcome string, d time.Duration) {
	Lookups.WithLabelValues(provider, outcome).Inc()
	LookupDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveFeedSync records one data connector pull.
func ObserveFeedSync(provider, outcome string, records int, d time.Duration) {
	FeedSyncs.WithLabelValues(provider, outcome).Inc()
	FeedSyncDuration.WithLabelValues(provider).Observe(d.Seconds())
	if records > 0 {
		FeedRecords.WithLabelValues(provider).Add(float64(records))
	}
}
