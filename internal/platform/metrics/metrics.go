package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process-wide Prometheus metrics: HTTP traffic and
// catalog reloads. Domain packages register their own.
type Metrics struct {
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	CatalogReloads *prometheus.CounterVec
	CatalogEntries prometheus.Gauge
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "railclaim_http_requests_total",
			Help: "HTTP requests by route pattern, method and status",
		}, []string{"route", "method", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "railclaim_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		CatalogReloads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "railclaim_catalog_reloads_total",
			Help: "Catalog reload attempts by result (ok, failed)",
		}, []string{"result"}),
		CatalogEntries: f.NewGauge(prometheus.GaugeOpts{
			Name: "railclaim_catalog_entries",
			Help: "Number of entries in the active catalog snapshot",
		}),
	}
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveCatalogReload records a reload attempt and, when it succeeded, the
// entry count of the new snapshot.
func (m *Metrics) ObserveCatalogReload(entries int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.CatalogReloads.WithLabelValues("failed").Inc()
		return
	}
	m.CatalogReloads.WithLabelValues("ok").Inc()
	m.CatalogEntries.Set(float64(entries))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
