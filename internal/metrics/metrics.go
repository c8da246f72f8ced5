// Package metrics exposes Prometheus collectors for the submission pipeline.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal       *prometheus.CounterVec
	submissionRetriesTotal prometheus.Counter
	urlsDiscoveredTotal    prometheus.Counter
	runsTotal              *prometheus.CounterVec
	submissionDurationSecs prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		submissionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexrunner_submissions_total",
				Help: "Total number of submission outcomes, labeled by status.",
			},
			[]string{"status"},
		)

		submissionRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "indexrunner_submission_retries_total",
				Help: "Total number of retried submission attempts.",
			},
		)

		urlsDiscoveredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "indexrunner_sitemap_urls_discovered_total",
				Help: "Total number of URLs discovered in sitemaps.",
			},
		)

		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexrunner_runs_total",
				Help: "Total number of runs, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		submissionDurationSecs = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "indexrunner_submission_duration_seconds",
				Help:    "Histogram of indexing API call latencies.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		)
	})
}

// ObserveSubmission records one terminal submission outcome and its latency.
func ObserveSubmission(status string, duration time.Duration) {
	Init()
	submissionsTotal.WithLabelValues(status).Inc()
	submissionDurationSecs.Observe(duration.Seconds())
}

// IncRetry counts a retried submission attempt.
func IncRetry() {
	Init()
	submissionRetriesTotal.Inc()
}

// AddDiscovered counts URLs extracted from the sitemap tree.
func AddDiscovered(n int) {
	Init()
	urlsDiscoveredTotal.Add(float64(n))
}

// IncRun counts a completed run by outcome.
func IncRun(outcome string) {
	Init()
	runsTotal.WithLabelValues(outcome).Inc()
}
