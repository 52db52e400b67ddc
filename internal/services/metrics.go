package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the process-wide prometheus collectors. All names carry the
// srh_ prefix.
type Metrics struct {
	CompletionRequests *prometheus.CounterVec
	CompletionDuration prometheus.Histogram
	CompletionInFlight prometheus.Gauge

	AnalysisRuns    *prometheus.CounterVec
	AnalysisSkipped *prometheus.CounterVec

	Turns            *prometheus.CounterVec
	FilterRejections *prometheus.CounterVec
	FeedbackRatings  *prometheus.CounterVec
}

// NewMetrics registers the collectors once and returns the shared set.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			CompletionRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "srh_completion_requests_total",
					Help: "Completion attempts by outcome",
				},
				[]string{"outcome"}, // ok, timeout, rate_limited, server_error, client_error, bad_envelope, error
			),
			CompletionDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "srh_completion_duration_seconds",
					Help:    "Wall time of one Complete call including retries",
					Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
				},
			),
			CompletionInFlight: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "srh_completion_in_flight",
					Help: "Completion calls holding an admission slot",
				},
			),
			AnalysisRuns: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "srh_analysis_runs_total",
					Help: "Background analyses by kind and result",
				},
				[]string{"kind", "result"}, // saved, invalid, failed
			),
			AnalysisSkipped: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "srh_analysis_skipped_total",
					Help: "Analyzer dispatches that found no new threshold",
				},
				[]string{"kind"},
			),
			Turns: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "srh_turns_total",
					Help: "Transport events handled by state",
				},
				[]string{"state"},
			),
			FilterRejections: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "srh_filter_rejections_total",
					Help: "Questions rejected by the content filter",
				},
				[]string{"language", "match"},
			),
			FeedbackRatings: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "srh_feedback_ratings_total",
					Help: "Feedback ratings received",
				},
				[]string{"rating"},
			),
		}
	})
	return globalMetrics
}
