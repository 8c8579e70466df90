package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps the Prometheus collectors used by the broker.
type Registry struct {
	Connections connGauges
	Topics      topicGauges
	Messages    messageCounters
}

type connGauges struct {
	ActiveConnections prometheus.Gauge
}

type topicGauges struct {
	ActiveTopics prometheus.Gauge
}

type messageCounters struct {
	Published         prometheus.Counter
	Delivered         prometheus.Counter
	DecodeErrors      prometheus.Counter
	SubscribersPruned prometheus.Counter
	AcceptErrors      prometheus.Counter
}

// NewRegistry creates the Prometheus metrics collectors.
func NewRegistry() *Registry {
	return &Registry{
		Connections: connGauges{
			ActiveConnections: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "broker_connections_active",
				Help: "Number of active client TCP connections",
			}),
		},
		Topics: topicGauges{
			ActiveTopics: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "broker_topics_active",
				Help: "Number of topics currently present in the registry",
			}),
		},
		Messages: messageCounters{
			Published: promauto.NewCounter(prometheus.CounterOpts{
				Name: "broker_messages_published_total",
				Help: "Total number of messages accepted by Publish requests",
			}),
			Delivered: promauto.NewCounter(prometheus.CounterOpts{
				Name: "broker_messages_delivered_total",
				Help: "Total number of Message responses enqueued to subscribers",
			}),
			DecodeErrors: promauto.NewCounter(prometheus.CounterOpts{
				Name: "broker_decode_errors_total",
				Help: "Total number of connections closed due to a protocol decode error",
			}),
			SubscribersPruned: promauto.NewCounter(prometheus.CounterOpts{
				Name: "broker_subscribers_pruned_total",
				Help: "Total number of subscriber queues pruned after a failed enqueue",
			}),
			AcceptErrors: promauto.NewCounter(prometheus.CounterOpts{
				Name: "broker_accept_errors_total",
				Help: "Total number of TCP accept errors",
			}),
		},
	}
}

// Handler returns an HTTP handler exposing Prometheus metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.Handler()
}
