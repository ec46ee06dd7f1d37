// Package observability provides Prometheus metrics for the application.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Item metrics
	ItemsSkipped   prometheus.Counter
	ItemsSucceeded prometheus.Counter
	ItemsFailed    prometheus.Counter
	ItemDuration   prometheus.Histogram

	// Extraction metrics
	ExtractionAttempts  *prometheus.CounterVec
	ExtractionSuccesses *prometheus.CounterVec
	StalledPartials     prometheus.Counter

	// Post-processing metrics
	EmbedFailures       prometheus.Counter
	ConversionsRefused  prometheus.Counter
	ConversionFailures  prometheus.Counter
	CopyFailures        prometheus.Counter
	LedgerWriteFailures prometheus.Counter

	// Copy worker metrics
	CopiesInFlight prometheus.Gauge
}

// New creates and registers all application metrics.
func New() *Metrics {
	return &Metrics{
		ItemsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "retreivr",
			Subsystem: "items",
			Name:      "skipped_total",
			Help:      "Total number of items skipped by the ledger dedup gate",
		}),
		ItemsSucceeded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "retreivr",
			Subsystem: "items",
			Name:      "succeeded_total",
			Help:      "Total number of items archived successfully",
		}),
		ItemsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "retreivr",
			Subsystem: "items",
			Name:      "failed_total",
			Help:      "Total number of items that failed permanently this run",
		}),
		ItemDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "retreivr",
			Subsystem: "items",
			Name:      "duration_seconds",
			Help:      "Histogram of per-item processing duration in seconds",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		ExtractionAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "retreivr",
			Subsystem: "extraction",
			Name:      "attempts_total",
			Help:      "Total number of extraction attempts per client profile",
		}, []string{"client"}),
		ExtractionSuccesses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "retreivr",
			Subsystem: "extraction",
			Name:      "successes_total",
			Help:      "Total number of successful extractions per client profile",
		}, []string{"client"}),
		StalledPartials: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "retreivr",
			Subsystem: "extraction",
			Name:      "stalled_partials_total",
			Help:      "Total number of stalled partial downloads detected",
		}),
		EmbedFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "retreivr",
			Subsystem: "postprocess",
			Name:      "embed_failures_total",
			Help:      "Total number of metadata embedding failures",
		}),
		ConversionsRefused: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "retreivr",
			Subsystem: "postprocess",
			Name:      "conversions_refused_total",
			Help:      "Total number of container conversions refused as unsafe",
		}),
		ConversionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "retreivr",
			Subsystem: "postprocess",
			Name:      "conversion_failures_total",
			Help:      "Total number of container conversion failures",
		}),
		CopyFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "retreivr",
			Subsystem: "copy",
			Name:      "failures_total",
			Help:      "Total number of destination copy failures",
		}),
		LedgerWriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "retreivr",
			Subsystem: "ledger",
			Name:      "write_failures_total",
			Help:      "Total number of ledger writes that failed after a successful copy",
		}),
		CopiesInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "retreivr",
			Subsystem: "copy",
			Name:      "in_flight",
			Help:      "Number of background copies currently outstanding",
		}),
	}
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ItemTimer returns a function to record per-item processing duration.
func (m *Metrics) ItemTimer() func() {
	start := time.Now()

	return func() {
		m.ItemDuration.Observe(time.Since(start).Seconds())
	}
}
