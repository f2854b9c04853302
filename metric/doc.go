// Package metric wraps a Prometheus registry for kinetic-simulator.
//
// MetricsRegistry carries the shared Metrics (service status, error counts, payload
// counts, generation latency, NATS mirror status) and lets components register their own
// collectors under a "service.metric" key so duplicates are rejected early:
//
//	registry := metric.NewMetricsRegistry()
//	sessions := prometheus.NewGauge(prometheus.GaugeOpts{Name: "stream_active_sessions"})
//	if err := registry.RegisterGauge("stream", "active_sessions", sessions); err != nil {
//	    return err
//	}
//
// Server exposes the registry over HTTP with promhttp.
package metric
