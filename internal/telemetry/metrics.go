package telemetry

import (
	"net/http"

	"github.com/Guilhem-Bonnet/termin-watch/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "termin_watch"

// Metrics implémente ports.Metrics sur un registre Prometheus dédié.
type Metrics struct {
	registry *prometheus.Registry

	cycles        *prometheus.CounterVec
	cycleDuration *prometheus.HistogramVec
	slots         *prometheus.GaugeVec
	lastFound     *prometheus.GaugeVec
	subscribers   prometheus.Gauge
	restarts      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Poll cycles completed, by resource and outcome.",
		}, []string{"resource", "outcome"}),
		cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_cycle_duration_seconds",
			Help:      "Duration of a fetch cycle.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45},
		}, []string{"resource"}),
		slots: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "available_slots",
			Help:      "Bookable slots seen on the last successful cycle.",
		}, []string{"resource"}),
		lastFound: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_slots_found_timestamp_seconds",
			Help:      "Unix time of the last cycle that found slots.",
		}, []string{"resource"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribers",
			Help:      "Currently connected subscribers.",
		}),
		restarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watcher_restarts_total",
			Help:      "Watchers restarted after a crash.",
		}, []string{"resource"}),
	}
	reg.MustRegister(
		m.cycles, m.cycleDuration, m.slots, m.lastFound, m.subscribers, m.restarts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveCycle(p domain.StatusPayload, seconds float64) {
	outcome := "ok"
	if !p.OK() {
		outcome = "error"
	}
	m.cycles.WithLabelValues(p.ResourceID, outcome).Inc()
	m.cycleDuration.WithLabelValues(p.ResourceID).Observe(seconds)
	if p.OK() {
		m.slots.WithLabelValues(p.ResourceID).Set(float64(len(p.Slots)))
	}
	if !p.LastNonEmptyAt.IsZero() {
		m.lastFound.WithLabelValues(p.ResourceID).Set(float64(p.LastNonEmptyAt.Unix()))
	}
}

func (m *Metrics) SetSubscribers(n int) { m.subscribers.Set(float64(n)) }

func (m *Metrics) WatcherRestarted(resourceID string) {
	m.restarts.WithLabelValues(resourceID).Inc()
}

// Handler expose le registre au format Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry sert aux tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
