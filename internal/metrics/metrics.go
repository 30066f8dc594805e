package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "redalert"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics is a set of collectors bound to one registry.
type Metrics struct {
	registry *prometheus.Registry

	cycles          prometheus.Counter
	cycleErrors     prometheus.Counter
	cycleDuration   prometheus.Histogram
	fetchErrors     prometheus.Counter
	decisions       *prometheus.CounterVec
	publishes       *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	alarmActive     prometheus.Gauge
	brokerConnected prometheus.Gauge
}

// New registers all collectors, plus the Go and process collectors, on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		cycles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Poll cycles run.",
		}),
		cycleErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_errors_total",
			Help:      "Poll cycles that ended with at least one error.",
		}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a poll cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), //nolint:mnd // 10ms to ~20s.
		}),
		fetchErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Failed feed requests.",
		}),
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Feed payload verdicts.",
		}, []string{"verdict", "reason"}),
		publishes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publishes_total",
			Help:      "Broker publishes by topic and result.",
		}, []string{"topic", "result"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by sink and result.",
		}, []string{"sink", "result"}),
		alarmActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alarm_active",
			Help:      "1 while an alert is active.",
		}),
		brokerConnected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "broker_connected",
			Help:      "1 while the broker session is up.",
		}),
	}
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCycle records one finished cycle.
func (m *Metrics) ObserveCycle(elapsed time.Duration, err error) {
	m.cycles.Inc()
	m.cycleDuration.Observe(elapsed.Seconds())

	if err != nil {
		m.cycleErrors.Inc()
	}
}

// FetchFailed counts a failed feed request.
func (m *Metrics) FetchFailed() {
	m.fetchErrors.Inc()
}

// Decision counts one verdict.
func (m *Metrics) Decision(verdict, reason string) {
	m.decisions.WithLabelValues(verdict, reason).Inc()
}

// Published counts one publish attempt.
func (m *Metrics) Published(topic string, err error) {
	m.publishes.WithLabelValues(topic, result(err)).Inc()
}

// Notified counts one sink delivery.
func (m *Metrics) Notified(sink string, err error) {
	m.notifications.WithLabelValues(sink, result(err)).Inc()
}

// SetAlarmActive exports the alarm status.
func (m *Metrics) SetAlarmActive(active bool) {
	m.alarmActive.Set(boolToFloat(active))
}

// SetBrokerConnected exports the broker session status.
func (m *Metrics) SetBrokerConnected(connected bool) {
	m.brokerConnected.Set(boolToFloat(connected))
}

func result(err error) string {
	if err != nil {
		return ResultError
	}

	return ResultOK
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}

	return 0
}
