package publisher

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for audit publishing.
type Metrics struct {
	Emitted         prometheus.Counter
	Dropped         prometheus.Counter
	CircuitDropped  prometheus.Counter
	PersistFailures prometheus.Counter
	PersistDuration prometheus.Histogram
	BreakerState    prometheus.Gauge
}

// NewMetrics registers the audit publisher metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Emitted: f.NewCounter(prometheus.CounterOpts{
			Name: "railclaim_audit_events_persisted_total",
			Help: "Total number of audit events accepted by the sink",
		}),
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Name: "railclaim_audit_buffer_dropped_total",
			Help: "Total number of audit events dropped because the buffer was full",
		}),
		CircuitDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "railclaim_audit_circuit_dropped_total",
			Help: "Total number of audit events dropped due to circuit breaker",
		}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "railclaim_audit_persist_failures_total",
			Help: "Total number of audit event persistence failures",
		}),
		PersistDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "railclaim_audit_persist_duration_seconds",
			Help:    "Duration of audit sink writes",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		BreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "railclaim_audit_circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed/healthy, 1=open/unhealthy)",
		}),
	}
}

func (m *Metrics) IncDropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}

func (m *Metrics) IncCircuitDropped() {
	if m != nil {
		m.CircuitDropped.Inc()
	}
}

func (m *Metrics) IncPersistFailures() {
	if m != nil {
		m.PersistFailures.Inc()
	}
}

func (m *Metrics) ObservePersist(d time.Duration) {
	if m != nil {
		m.Emitted.Inc()
		m.PersistDuration.Observe(d.Seconds())
	}
}

// SetBreakerOpen sets the circuit breaker state gauge.
func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerState.Set(1)
	} else {
		m.BreakerState.Set(0)
	}
}
