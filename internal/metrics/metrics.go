// Package metrics exposes Prometheus counters for trace normalization and
// error classification.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MikeSquared-Agency/stackoverfix/internal/trace"
)

var (
	reportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackoverfix_reports_total",
			Help: "Total normalized reports, by source",
		},
		[]string{"source"},
	)

	framesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackoverfix_frames_dropped_total",
			Help: "Total frames left out of filtered traces, by reason",
		},
		[]string{"reason"},
	)

	classifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackoverfix_classifications_total",
			Help: "Total error classifications, by outcome",
		},
		[]string{"outcome"},
	)
)

// Drop reasons.
const (
	ReasonLibrary   = "library"
	ReasonRecursion = "recursion"
)

// Classification outcomes.
const (
	OutcomeDocRequest = "doc_request"
	OutcomeAnswered   = "answered"
	OutcomeError      = "error"
)

// Register adds all collectors to reg. Registering twice on the same
// registry is not an error.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{reportsTotal, framesDropped, classifications} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// RecordReport records one normalized report and what its scan dropped.
func RecordReport(source string, stats trace.Stats) {
	if source == "" {
		source = "unknown"
	}
	reportsTotal.WithLabelValues(source).Inc()
	if stats.DroppedLibrary > 0 {
		framesDropped.WithLabelValues(ReasonLibrary).Add(float64(stats.DroppedLibrary))
	}
	if stats.DroppedRecursion > 0 {
		framesDropped.WithLabelValues(ReasonRecursion).Add(float64(stats.DroppedRecursion))
	}
}

// RecordClassification records a classifier outcome.
func RecordClassification(outcome string) {
	classifications.WithLabelValues(outcome).Inc()
}
