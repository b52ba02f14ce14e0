// Package metrics provides Prometheus collectors for the digest pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DigestRuns counts digest runs by trigger and outcome.
	DigestRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signalist",
			Name:      "digest_runs_total",
			Help:      "Total number of digest runs",
		},
		[]string{"trigger", "outcome"},
	)

	// DigestRunDuration measures a whole run.
	DigestRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "signalist",
			Name:      "digest_run_duration_seconds",
			Help:      "Duration of digest runs in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// EmailsTotal counts outbound emails by kind and status.
	EmailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signalist",
			Name:      "emails_total",
			Help:      "Total number of emails attempted",
		},
		[]string{"kind", "status"},
	)

	// SummaryFallbacks counts digests rendered without the AI summary.
	SummaryFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "signalist",
			Name:      "summary_fallbacks_total",
			Help:      "Total number of digests rendered by the fallback renderer",
		},
	)

	// NewsFetchErrors counts provider failures by kind.
	NewsFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signalist",
			Name:      "news_fetch_errors_total",
			Help:      "Total number of failed news provider calls",
		},
		[]string{"kind"},
	)
)

// RecordEmail records one send attempt.
func RecordEmail(kind string, err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	EmailsTotal.WithLabelValues(kind, status).Inc()
}
