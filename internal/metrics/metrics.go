// Package metrics exposes Prometheus instrumentation for the forward-pass core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ForwardDuration = promauto.NewSummary(prometheus.SummaryOpts{
		Name: "forward_duration_seconds",
		Help: "Duration of full encoder-decoder forward passes",
	})

	ForwardTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forward_total",
		Help: "Total number of forward passes computed",
	})

	TensorAllocBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tensor_alloc_bytes_total",
		Help: "Total bytes allocated for tensor storage",
	})

	TensorAllocs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tensor_allocs_total",
		Help: "Total number of tensor allocations",
	})

	ValidationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "validation_errors_total",
		Help: "Total number of validation errors",
	}, []string{"operation", "error_type"})

	SequenceLength = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sequence_length_tokens",
		Help:    "Distribution of sequence lengths processed",
		Buckets: []float64{1, 8, 16, 32, 64, 128, 256, 512, 1024, 2048},
	})

	AttentionRowDrift = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attention_row_drift_total",
		Help: "Count of attention weight rows whose sum drifted from 1.0",
	})

	NumericalInstability = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "numerical_instability_total",
		Help: "Total number of NaN/Inf values detected",
	}, []string{"tensor", "type"})
)

// RecordForward observes one completed forward pass.
func RecordForward(duration time.Duration) {
	ForwardTotal.Inc()
	ForwardDuration.Observe(duration.Seconds())
}

// RecordTensorAlloc accounts for one tensor backing-array allocation.
func RecordTensorAlloc(bytes int) {
	TensorAllocs.Inc()
	TensorAllocBytes.Add(float64(bytes))
}

// RecordValidationError counts a failed shape/config/index validation.
func RecordValidationError(operation, errorType string) {
	ValidationErrors.WithLabelValues(operation, errorType).Inc()
}

// RecordSequenceLength tracks the token length of a processed sequence.
func RecordSequenceLength(tokens int) {
	SequenceLength.Observe(float64(tokens))
}

// RecordAttentionRowDrift counts attention rows that failed the sum-to-one check.
func RecordAttentionRowDrift(rows int) {
	if rows > 0 {
		AttentionRowDrift.Add(float64(rows))
	}
}

// RecordNumericalInstability counts NaN/Inf occurrences in a named tensor.
func RecordNumericalInstability(name string, nanCount, infCount int) {
	if nanCount > 0 {
		NumericalInstability.WithLabelValues(name, "nan").Add(float64(nanCount))
	}
	if infCount > 0 {
		NumericalInstability.WithLabelValues(name, "inf").Add(float64(infCount))
	}
}
