package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "creditintel"

// Metrics holds the dashboard's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	refreshCycles   *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	apiRequests     *prometheus.CounterVec
	panelRecords    *prometheus.GaugeVec
	staleDiscarded  prometheus.Counter
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		refreshCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_cycles_total",
			Help:      "Dashboard refresh cycles by outcome.",
		}, []string{"outcome"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Wall time of a dashboard refresh cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Requests made to the credit API by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		panelRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "panel_records",
			Help:      "Records held by each dashboard panel after the last cycle.",
		}, []string{"panel"}),
		staleDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detail_stale_discarded_total",
			Help:      "Issuer detail responses dropped because a newer selection superseded them.",
		}),
	}

	m.registry.MustRegister(
		m.refreshCycles,
		m.refreshDuration,
		m.apiRequests,
		m.panelRecords,
		m.staleDiscarded,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRefresh records one refresh cycle.
func (m *Metrics) ObserveRefresh(d time.Duration, err error) {
	m.refreshCycles.WithLabelValues(outcome(err)).Inc()
	m.refreshDuration.Observe(d.Seconds())
}

// ObserveRequest records one API request. Its signature matches
// api.WithObserver.
func (m *Metrics) ObserveRequest(endpoint string, err error) {
	m.apiRequests.WithLabelValues(endpoint, outcome(err)).Inc()
}

// SetPanelRecords records how many rows a panel holds.
func (m *Metrics) SetPanelRecords(panel string, n int) {
	m.panelRecords.WithLabelValues(panel).Set(float64(n))
}

// StaleDiscarded counts a detail response dropped as out of date.
func (m *Metrics) StaleDiscarded() {
	m.staleDiscarded.Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
