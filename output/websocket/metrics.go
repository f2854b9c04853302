package websocket

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/choi857/kinetic-simulator/errors"
	"github.com/choi857/kinetic-simulator/metric"
)

const metricsService = "stream"

// Metrics holds Prometheus metrics for the stream server. A nil *Metrics records nothing.
type Metrics struct {
	core *metric.Metrics

	sessionsActive      *prometheus.GaugeVec
	connectionsTotal    prometheus.Counter
	disconnectionsTotal *prometheus.CounterVec
	controlMessages     *prometheus.CounterVec
	payloadsSent        prometheus.Counter
	bytesSent           prometheus.Counter
	payloadSizeBytes    prometheus.Histogram
	sendErrors          *prometheus.CounterVec
	generationDuration  *prometheus.HistogramVec
	renegotiations      prometheus.Counter
	fallbackAdoptions   prometheus.Counter
}

func newMetrics(registry *metric.MetricsRegistry) (*Metrics, error) {
	if registry == nil {
		return nil, nil
	}

	m := &Metrics{
		core: registry.CoreMetrics(),

		sessionsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "kinetic",
			Subsystem: "stream",
			Name:      "sessions",
			Help:      "Open connections by lifecycle state",
		}, []string{"state"}),

		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kinetic",
			Subsystem: "stream",
			Name:      "connections_total",
			Help:      "Total accepted WebSocket connections",
		}),

		disconnectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kinetic",
			Subsystem: "stream",
			Name:      "disconnections_total",
			Help:      "Total closed connections",
		}, []string{"disconnect_reason"}),

		controlMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kinetic",
			Subsystem: "stream",
			Name:      "control_messages_total",
			Help:      "First messages by outcome (rich, legacy, invalid)",
		}, []string{"form"}),

		payloadsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kinetic",
			Subsystem: "stream",
			Name:      "payloads_sent_total",
			Help:      "Generated payloads written to clients",
		}),

		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kinetic",
			Subsystem: "stream",
			Name:      "bytes_sent_total",
			Help:      "Payload bytes written to clients",
		}),

		payloadSizeBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "kinetic",
			Subsystem: "stream",
			Name:      "payload_size_bytes",
			Help:      "Size distribution of generated payloads",
			Buckets:   []float64{64, 256, 1000, 4000, 16000, 64000},
		}),

		sendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kinetic",
			Subsystem: "stream",
			Name:      "send_errors_total",
			Help:      "Failed writes and mirror publishes",
		}, []string{"error_type"}),

		generationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kinetic",
			Subsystem: "stream",
			Name:      "generation_duration_seconds",
			Help:      "Time to generate one payload",
			Buckets:   []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}, []string{"mode"}),

		renegotiations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kinetic",
			Subsystem: "stream",
			Name:      "renegotiations_total",
			Help:      "Accepted push interval changes",
		}),

		fallbackAdoptions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kinetic",
			Subsystem: "stream",
			Name:      "fallback_adoptions_total",
			Help:      "Connections configured from the global fallback after the grace period",
		}),
	}

	regs := []func() error{
		func() error { return registry.RegisterGaugeVec(metricsService, "sessions", m.sessionsActive) },
		func() error { return registry.RegisterCounter(metricsService, "connections_total", m.connectionsTotal) },
		func() error {
			return registry.RegisterCounterVec(metricsService, "disconnections_total", m.disconnectionsTotal)
		},
		func() error { return registry.RegisterCounterVec(metricsService, "control_messages_total", m.controlMessages) },
		func() error { return registry.RegisterCounter(metricsService, "payloads_sent_total", m.payloadsSent) },
		func() error { return registry.RegisterCounter(metricsService, "bytes_sent_total", m.bytesSent) },
		func() error { return registry.RegisterHistogram(metricsService, "payload_size_bytes", m.payloadSizeBytes) },
		func() error { return registry.RegisterCounterVec(metricsService, "send_errors_total", m.sendErrors) },
		func() error {
			return registry.RegisterHistogramVec(metricsService, "generation_duration_seconds", m.generationDuration)
		},
		func() error { return registry.RegisterCounter(metricsService, "renegotiations_total", m.renegotiations) },
		func() error { return registry.RegisterCounter(metricsService, "fallback_adoptions_total", m.fallbackAdoptions) },
	}
	for _, reg := range regs {
		if err := reg(); err != nil {
			return nil, errors.Wrap(err, "websocket", "newMetrics", "register stream metrics")
		}
	}
	return m, nil
}

func (m *Metrics) connected() {
	if m == nil {
		return
	}
	m.connectionsTotal.Inc()
}

func (m *Metrics) disconnected(reason string) {
	if m == nil {
		return
	}
	m.disconnectionsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) sessions(counts map[string]int) {
	if m == nil {
		return
	}
	for state, n := range counts {
		m.sessionsActive.WithLabelValues(state).Set(float64(n))
	}
}

func (m *Metrics) control(form string) {
	if m == nil {
		return
	}
	m.controlMessages.WithLabelValues(form).Inc()
}

func (m *Metrics) generated(mode string, d time.Duration) {
	if m == nil {
		return
	}
	m.generationDuration.WithLabelValues(mode).Observe(d.Seconds())
	m.core.RecordGeneration(metricsService, mode, d)
}

func (m *Metrics) sent(size int) {
	if m == nil {
		return
	}
	m.payloadsSent.Inc()
	m.bytesSent.Add(float64(size))
	m.payloadSizeBytes.Observe(float64(size))
	m.core.RecordPayload(metricsService, "websocket")
}

func (m *Metrics) mirrored() {
	if m == nil {
		return
	}
	m.core.RecordPayload(metricsService, "nats")
}

func (m *Metrics) sendError(kind string, err error) {
	if m == nil {
		return
	}
	m.sendErrors.WithLabelValues(kind).Inc()
	m.core.RecordError(metricsService, errors.Classify(err).String())
}

func (m *Metrics) renegotiated() {
	if m == nil {
		return
	}
	m.renegotiations.Inc()
}

func (m *Metrics) adoptedFallback() {
	if m == nil {
		return
	}
	m.fallbackAdoptions.Inc()
}
