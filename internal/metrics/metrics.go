package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts guestbook operations.
type Metrics struct {
	registry *prometheus.Registry

	MessagesCreated prometheus.Counter
	MessagesDeleted prometheus.Counter
	Votes           *prometheus.CounterVec
	Failures        *prometheus.CounterVec
	WSClients       prometheus.Gauge
}

// New registers the guestbook collectors, plus the Go runtime and process
// collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		MessagesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guestbook_messages_created_total",
			Help: "Messages posted.",
		}),
		MessagesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guestbook_messages_deleted_total",
			Help: "Authorized delete requests.",
		}),
		Votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guestbook_votes_total",
			Help: "Applied votes by previous and new choice.",
		}, []string{"prev", "vote"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guestbook_request_failures_total",
			Help: "Failed API requests by operation and status code.",
		}, []string{"op", "code"}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "guestbook_websocket_clients",
			Help: "Connected WebSocket clients.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.MessagesCreated,
		m.MessagesDeleted,
		m.Votes,
		m.Failures,
		m.WSClients,
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
