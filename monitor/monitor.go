// monitor/monitor.go
package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	EventsReceived   *prometheus.CounterVec
	EventsDiscarded  *prometheus.CounterVec
	ActionsEmitted   *prometheus.CounterVec
	ActionsGated     *prometheus.CounterVec
	CommandsSettled  *prometheus.CounterVec
	CommandLatency   prometheus.Histogram
	PendingCommands  prometheus.Gauge
	RoomsAvailable   prometheus.Gauge
	RoomListFailures prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		EventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Inbound events by name",
		}, []string{"event"}),
		EventsDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_discarded_total",
			Help:      "Inbound events dropped without changing the mirror",
		}, []string{"event", "reason"}),
		ActionsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_emitted_total",
			Help:      "Commands sent to the server",
		}, []string{"action"}),
		ActionsGated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_gated_total",
			Help:      "Requests not sent because it was not our turn",
		}, []string{"action"}),
		CommandsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_settled_total",
			Help:      "Commands by final status",
		}, []string{"status"}),
		CommandLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_latency_seconds",
			Help:      "Time from emit to the correlated server answer",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		PendingCommands: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_commands",
			Help:      "Commands awaiting an answer",
		}),
		RoomsAvailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_available",
			Help:      "Rooms with a free seat in the last list",
		}),
		RoomListFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_list_failures_total",
			Help:      "Failed room list queries",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.EventsReceived,
		m.EventsDiscarded,
		m.ActionsEmitted,
		m.ActionsGated,
		m.CommandsSettled,
		m.CommandLatency,
		m.PendingCommands,
		m.RoomsAvailable,
		m.RoomListFailures,
	}
}

// Monitor 客户端监控
type Monitor struct {
	metrics   *Metrics
	registry  *prometheus.Registry
	startTime time.Time
}

// NewMonitor registers the client metrics on a private registry.
func NewMonitor(namespace string) *Monitor {
	m := &Monitor{
		metrics:   NewMetrics(namespace),
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}
	m.registry.MustRegister(m.metrics.collectors()...)
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Seconds since the client started",
	}, func() float64 {
		return time.Since(m.startTime).Seconds()
	}))
	return m
}

func (m *Monitor) Metrics() *Metrics {
	return m.metrics
}

// Handler serves the registry in the Prometheus text format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Monitor) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *Monitor) IncEventsReceived(event string) {
	m.metrics.EventsReceived.WithLabelValues(event).Inc()
}

func (m *Monitor) IncEventsDiscarded(event, reason string) {
	m.metrics.EventsDiscarded.WithLabelValues(event, reason).Inc()
}

func (m *Monitor) IncActionsEmitted(action string) {
	m.metrics.ActionsEmitted.WithLabelValues(action).Inc()
}

func (m *Monitor) IncActionsGated(action string) {
	m.metrics.ActionsGated.WithLabelValues(action).Inc()
}

// ObserveCommand records a settled command. latency 0 is not observed.
func (m *Monitor) ObserveCommand(status string, latency time.Duration) {
	m.metrics.CommandsSettled.WithLabelValues(status).Inc()
	if latency > 0 {
		m.metrics.CommandLatency.Observe(latency.Seconds())
	}
}

func (m *Monitor) SetPendingCommands(n int) {
	m.metrics.PendingCommands.Set(float64(n))
}

func (m *Monitor) SetRoomsAvailable(n int) {
	m.metrics.RoomsAvailable.Set(float64(n))
}

func (m *Monitor) IncRoomListFailures() {
	m.metrics.RoomListFailures.Inc()
}
