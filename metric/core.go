package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the process-wide metrics shared by every component.
// Component-specific metrics are registered separately through MetricsRegistry.
type Metrics struct {
	ServiceStatus      *prometheus.GaugeVec
	ErrorsTotal        *prometheus.CounterVec
	PayloadsPublished  *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec

	NATSConnected prometheus.Gauge
}

// NewMetrics creates the shared metric set
func NewMetrics() *Metrics {
	return &Metrics{
		ServiceStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "kinetic",
				Subsystem: "service",
				Name:      "status",
				Help:      "Service status (0=stopped, 1=starting, 2=running, 3=stopping, 4=failed)",
			},
			[]string{"service"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kinetic",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors by service and class",
			},
			[]string{"service", "class"},
		),

		PayloadsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kinetic",
				Subsystem: "payloads",
				Name:      "published_total",
				Help:      "Generated payloads handed to a sink",
			},
			[]string{"service", "sink"},
		),

		GenerationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "kinetic",
				Subsystem: "generation",
				Name:      "duration_seconds",
				Help:      "Time spent generating one payload",
				Buckets:   []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
			},
			[]string{"service", "mode"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "kinetic",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS mirror connection status (0=disconnected, 1=connected)",
			},
		),
	}
}

func (c *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.ServiceStatus,
		c.ErrorsTotal,
		c.PayloadsPublished,
		c.GenerationDuration,
		c.NATSConnected,
	}
}

// RecordServiceStatus updates service status metric
func (c *Metrics) RecordServiceStatus(service string, status int) {
	c.ServiceStatus.WithLabelValues(service).Set(float64(status))
}

// RecordError increments the error counter for the given class
func (c *Metrics) RecordError(service, class string) {
	c.ErrorsTotal.WithLabelValues(service, class).Inc()
}

// RecordPayload counts one payload delivered to a sink ("websocket", "nats", ...)
func (c *Metrics) RecordPayload(service, sink string) {
	c.PayloadsPublished.WithLabelValues(service, sink).Inc()
}

// RecordGeneration records how long one payload took to generate
func (c *Metrics) RecordGeneration(service, mode string, d time.Duration) {
	c.GenerationDuration.WithLabelValues(service, mode).Observe(d.Seconds())
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}
