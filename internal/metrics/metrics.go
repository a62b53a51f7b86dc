// Package metrics defines the transcoder's Prometheus collectors.
//
// Collectors register with the default registry through promauto. Mount
// Handler on an HTTP mux to expose them:
//
//	mux.Handle("/metrics", metrics.Handler())
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Job outcome label values.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeDiscarded = "discarded"
)

// Job metrics
var (
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_transcoder_jobs_total",
			Help: "Total number of transcode jobs by outcome",
		},
		[]string{"outcome"},
	)

	JobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_transcoder_job_duration_seconds",
			Help:    "Wall time of transcode jobs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	ProgressPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_transcoder_progress_percent",
			Help: "Progress of the current transcode job",
		},
	)

	RejectedOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_transcoder_rejected_operations_total",
			Help: "Operations refused because of the job state",
		},
		[]string{"operation"},
	)
)

// Payload metrics
var (
	InputBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_transcoder_input_bytes",
			Help:    "Size of loaded input files in bytes",
			Buckets: prometheus.ExponentialBuckets(64*1024, 4, 10),
		},
	)

	OutputBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_transcoder_output_bytes",
			Help:    "Size of transcode results in bytes",
			Buckets: prometheus.ExponentialBuckets(64*1024, 4, 10),
		},
	)
)

// InitializeMetrics pre-populates label combinations so every series is
// exported from the first scrape.
func InitializeMetrics() {
	for _, outcome := range []string{OutcomeCompleted, OutcomeFailed, OutcomeDiscarded} {
		JobsTotal.WithLabelValues(outcome)
	}
	for _, op := range []string{"selectFile", "fileLoaded", "updateSetting", "startTranscode", "onProgress", "onTranscodeSuccess", "onTranscodeFailure", "exportResult"} {
		RejectedOperationsTotal.WithLabelValues(op)
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
