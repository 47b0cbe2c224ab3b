// Package metrics exposes prediction service metrics to prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	Namespace = "studentperf"
	Subsystem = "prediction"
)

// Outcome label values for PredictCount.
const (
	OutcomeSucceeded   = "succeeded"
	OutcomeRejected    = "rejected"
	OutcomeUnavailable = "unavailable"
	OutcomeFailed      = "failed"
)

// Variables declared for metrics.
var (
	PredictCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: Subsystem,
		Name:      "requests_total",
		Help:      "Counter of prediction requests by outcome.",
	}, []string{"outcome"})

	PredictedLabelCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: Subsystem,
		Name:      "label_total",
		Help:      "Counter of predicted labels.",
	}, []string{"label"})

	ConfidenceHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: Subsystem,
		Name:      "confidence",
		Help:      "Histogram of confidence scores of served predictions.",
		Buckets:   []float64{0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 0.99, 1},
	})

	ModelLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: Subsystem,
		Name:      "model_loaded",
		Help:      "1 when a classifier artifact is loaded, 0 in degraded mode.",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Histogram of HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "code"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
