// Package metrics provides Prometheus metrics for city-pulse.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "citypulse"

// Fetch outcomes.
const (
	OutcomeRemote    = "remote"
	OutcomeSynthetic = "synthetic"
)

var (
	// FetchTotal counts article lookups by provider and outcome.
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Total number of article lookups",
		},
		[]string{"provider", "outcome"},
	)

	// FetchDuration measures remote lookup duration.
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of remote article lookups in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// FallbackTotal counts synthetic fallbacks by reason.
	FallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_total",
			Help:      "Total number of synthetic feed fallbacks",
		},
		[]string{"reason"},
	)

	// StaleDiscardedTotal counts fetch results dropped because a newer request superseded them.
	StaleDiscardedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_discarded_total",
			Help:      "Total number of superseded fetch results discarded",
		},
	)

	// StorageErrorsTotal counts persistence failures by operation.
	StorageErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Total number of storage failures",
		},
		[]string{"op"},
	)

	// Bookmarks tracks the current bookmark count.
	Bookmarks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bookmarks",
			Help:      "Number of bookmarked articles",
		},
	)

	// PublishTotal counts activity events handed to publishers.
	PublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_total",
			Help:      "Total number of activity events published",
		},
		[]string{"type", "status"},
	)
)

// RecordFetch records a lookup outcome and its duration.
func RecordFetch(provider, outcome string, seconds float64) {
	FetchTotal.WithLabelValues(provider, outcome).Inc()
	FetchDuration.WithLabelValues(provider).Observe(seconds)
}

// RecordFallback records a synthetic fallback.
func RecordFallback(reason string) {
	FallbackTotal.WithLabelValues(reason).Inc()
}

// RecordStale records a discarded stale result.
func RecordStale() {
	StaleDiscardedTotal.Inc()
}

// RecordStorageError records a persistence failure.
func RecordStorageError(op string) {
	StorageErrorsTotal.WithLabelValues(op).Inc()
}

// SetBookmarks sets the bookmark gauge.
func SetBookmarks(n int) {
	Bookmarks.Set(float64(n))
}

// RecordPublish records an activity publish attempt.
func RecordPublish(eventType, status string) {
	PublishTotal.WithLabelValues(eventType, status).Inc()
}
