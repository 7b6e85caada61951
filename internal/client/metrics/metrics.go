// Package metrics exposes Prometheus instrumentation for the detection
// client: streaming frame counters, reconnect counts, and batch request
// outcomes. The listener is optional; with an empty address nothing is
// served and the counters are simply never scraped.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all client metrics, registered on a private registry so
// tests can construct isolated instances.
type Metrics struct {
	FramesSent     prometheus.Counter
	FramesReceived prometheus.Counter
	FramesSkipped  prometheus.Counter
	Reconnects     prometheus.Counter
	StreamErrors   prometheus.Counter
	ConnectionOpen prometheus.Gauge
	BatchRequests  *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a Metrics instance with all collectors registered.
func New() *Metrics {
	m := &Metrics{
		FramesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackerctl_frames_sent_total",
			Help: "Camera frames transmitted over the streaming connection",
		}),
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackerctl_frames_received_total",
			Help: "Annotated frames received over the streaming connection",
		}),
		FramesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackerctl_frames_skipped_total",
			Help: "Capture ticks skipped because a frame was still in flight",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackerctl_reconnects_total",
			Help: "Streaming connection reconnect attempts",
		}),
		StreamErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackerctl_stream_errors_total",
			Help: "Error messages received from the detection service",
		}),
		ConnectionOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trackerctl_connection_open",
			Help: "Whether the streaming connection is currently open (0/1)",
		}),
		BatchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trackerctl_batch_requests_total",
			Help: "One-shot processing requests by kind and outcome",
		}, []string{"kind", "outcome"}),

		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.FramesSent,
		m.FramesReceived,
		m.FramesSkipped,
		m.Reconnects,
		m.StreamErrors,
		m.ConnectionOpen,
		m.BatchRequests,
	)

	return m
}

// Handler returns the scrape handler for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve blocks serving /metrics on addr. Intended to run in its own
// goroutine; callers with an empty addr should not call it at all.
func (m *Metrics) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return http.ListenAndServe(addr, mux)
}
