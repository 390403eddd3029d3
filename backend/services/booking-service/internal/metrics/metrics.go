package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the engines report to. A nil *Metrics is a valid no-op recorder.
type Recorder interface {
	Reservation(outcome string)
	Payment(method, outcome string)
	ChargingSession(event string)
	SweepReleased(n int)
	Observe(operation string, started time.Time)
}

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry     *prometheus.Registry
	reservations *prometheus.CounterVec
	payments     *prometheus.CounterVec
	sessions     *prometheus.CounterVec
	swept        prometheus.Counter
	duration     *prometheus.HistogramVec
}

// New registers the collectors plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartpark_reservations_total",
			Help: "Reservation attempts by outcome.",
		}, []string{"outcome"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartpark_payments_total",
			Help: "Payment authorizations by method and outcome.",
		}, []string{"method", "outcome"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartpark_charging_sessions_total",
			Help: "Charging session lifecycle events.",
		}, []string{"event"}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartpark_sweep_released_total",
			Help: "Reservations and sessions released by the expiration sweep.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "smartpark_operation_duration_seconds",
			Help:    "Engine operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	m.registry.MustRegister(
		m.reservations, m.payments, m.sessions, m.swept, m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Reservation(outcome string) {
	if m == nil {
		return
	}
	m.reservations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Payment(method, outcome string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) ChargingSession(event string) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(event).Inc()
}

func (m *Metrics) SweepReleased(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.swept.Add(float64(n))
}

func (m *Metrics) Observe(operation string, started time.Time) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
