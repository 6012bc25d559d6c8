// Package metrics exposes Prometheus collectors for batch transform calls.
package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/mchmarny/advscorer/pkg/score"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK       = "ok"
	resultContract = "contract_violation"
	resultError    = "error"
)

var (
	// TransformCalls counts transform calls by result: ok, contract_violation or error.
	TransformCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advscorer_transform_calls_total",
			Help: "Count of batch transform calls by result.",
		},
		[]string{"result"},
	)

	// TransformRecords counts records of successful calls by outcome.
	TransformRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advscorer_records_total",
			Help: "Count of transformed records by outcome.",
		},
		[]string{"outcome"},
	)

	// TransformDuration observes the latency of successful calls in seconds.
	TransformDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "advscorer_transform_duration_seconds",
		Help:    "Latency of batch transform calls",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
	})

	once sync.Once
)

// Init registers the transform metrics with the default registry.
// It is safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(TransformCalls, TransformRecords, TransformDuration)
	})
}

// Observe records one transform call. Record outcomes and latency are only
// counted for calls that succeeded.
func Observe(stats score.Stats, d time.Duration, err error) {
	switch {
	case err == nil:
		TransformCalls.WithLabelValues(resultOK).Inc()
	case errors.Is(err, score.ErrContractViolation):
		TransformCalls.WithLabelValues(resultContract).Inc()
		return
	default:
		TransformCalls.WithLabelValues(resultError).Inc()
		return
	}

	TransformRecords.WithLabelValues(score.Boosted.String()).Add(float64(stats.Boosted))
	TransformRecords.WithLabelValues(score.Sentinel.String()).Add(float64(stats.Sentinel))
	TransformRecords.WithLabelValues(score.Passthrough.String()).Add(float64(stats.Passthrough))
	TransformDuration.Observe(d.Seconds())
}
