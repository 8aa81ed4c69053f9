package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the decision module.
type Metrics struct {
	// Evaluation outcomes by compensation source and scope class
	Outcomes *prometheus.CounterVec

	// Replays served from the record store
	Replays prometheus.Counter

	// Stage latencies inside the pipeline
	StageLatency *prometheus.HistogramVec

	// Overall evaluation latency
	EvaluateLatency prometheus.Histogram

	// Batch sizes
	BatchSize prometheus.Histogram
}

// New creates a new Metrics instance with all decision module metrics registered.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on reg. Tests pass a fresh registry.
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "railclaim_evaluation_outcomes_total",
			Help: "Total evaluations by compensation source and scope class",
		}, []string{"source", "scope"}),

		Replays: f.NewCounter(prometheus.CounterOpts{
			Name: "railclaim_evaluation_replays_total",
			Help: "Total evaluations answered from a stored record with the same fingerprint",
		}),

		StageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "railclaim_evaluation_stage_duration_seconds",
			Help:    "Duration of evaluation stages",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		}, []string{"stage"}), // stage: "fingerprint", "pipeline", "persist"

		EvaluateLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "railclaim_evaluation_duration_seconds",
			Help:    "Duration of a full evaluation including persistence",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		BatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "railclaim_evaluation_batch_size",
			Help:    "Number of requests per batch evaluation",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		}),
	}
}

// IncrementOutcome records an evaluation outcome.
func (m *Metrics) IncrementOutcome(source, scope string) {
	if m != nil {
		m.Outcomes.WithLabelValues(source, scope).Inc()
	}
}

// IncrementReplay records a replayed evaluation.
func (m *Metrics) IncrementReplay() {
	if m != nil {
		m.Replays.Inc()
	}
}

// ObserveStage records the duration of one pipeline stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m != nil {
		m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// ObserveEvaluateLatency records the total evaluation duration.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

// ObserveBatchSize records how many requests a batch carried.
func (m *Metrics) ObserveBatchSize(n int) {
	if m != nil {
		m.BatchSize.Observe(float64(n))
	}
}
