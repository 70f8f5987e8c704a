package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "truckdocs"

// Metrics owns a private registry with the Go runtime collectors plus the application counters.
type Metrics struct {
	registry *prometheus.Registry

	activityEvents *prometheus.CounterVec
	warningsShown  prometheus.Counter
	forcedLogouts  *prometheus.CounterVec
	signInFailures *prometheus.CounterVec
	uploads        *prometheus.CounterVec
	activeDevices  prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		activityEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_activity_events_total",
			Help:      "Activity events that reset a session timer, by event class.",
		}, []string{"event"}),
		warningsShown: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_warnings_total",
			Help:      "Times a session entered the inactivity warning.",
		}),
		forcedLogouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_forced_logouts_total",
			Help:      "Inactivity sign outs, by outcome.",
		}, []string{"outcome"}),
		signInFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sign_in_failures_total",
			Help:      "Failed sign in attempts, by auth error kind.",
		}, []string{"kind"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Document file uploads, by outcome.",
		}, []string{"outcome"}),
		activeDevices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_devices",
			Help:      "Devices with a mounted session.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.activityEvents,
		m.warningsShown,
		m.forcedLogouts,
		m.signInFailures,
		m.uploads,
		m.activeDevices,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ActivityRecorded(event string) {
	m.activityEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) WarningShown() {
	m.warningsShown.Inc()
}

func (m *Metrics) ForcedLogout(err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.forcedLogouts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SignInFailed(kind string) {
	m.signInFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) UploadFinished(outcome string) {
	m.uploads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetActiveDevices(n int) {
	m.activeDevices.Set(float64(n))
}
