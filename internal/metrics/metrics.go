// Package metrics implements the relay.Metrics collector surface with
// prometheus/client_golang collectors, per the metrics surface named in §6.
// Exposing them over HTTP is left to the embedding program; this package
// only registers the collectors and updates them on every state transition
// the engine reports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cpdlc-go/cpdlcd/internal/relay"
)

// Collectors is the Prometheus-backed implementation of relay.Metrics.
type Collectors struct {
	connAccepted  prometheus.Counter
	connOpen      prometheus.Gauge
	connBlocked   prometheus.Counter
	routed        *prometheus.CounterVec
	queueDepth    prometheus.Gauge
	queueBytes    prometheus.Gauge
	queueDropped  prometheus.Counter
	threadsByStat *prometheus.GaugeVec
}

// New builds a Collectors and registers every metric against reg. Passing
// prometheus.NewRegistry() keeps tests isolated from the global default
// registry.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		connAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cpdlcd_connections_accepted_total",
			Help: "Total TCP connections accepted by the relay.",
		}),
		connOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cpdlcd_connections_open",
			Help: "Currently open relay connections.",
		}),
		connBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cpdlcd_connections_blocked_total",
			Help: "Connections rejected because the peer address is blocklisted.",
		}),
		routed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cpdlcd_messages_routed_total",
			Help: "Messages routed, labeled by whether delivery was direct or queued.",
		}, []string{"path"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cpdlcd_queue_entries",
			Help: "Undeliverable messages currently queued.",
		}),
		queueBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cpdlcd_queue_bytes",
			Help: "Total accounted byte size of the undeliverable-message queue.",
		}),
		queueDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cpdlcd_queue_dropped_total",
			Help: "Queue entries dropped after exceeding their TTL.",
		}),
		threadsByStat: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cpdlcd_tracker_threads",
			Help: "Tracker threads currently in each status.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		c.connAccepted, c.connOpen, c.connBlocked,
		c.routed,
		c.queueDepth, c.queueBytes, c.queueDropped,
		c.threadsByStat,
	)
	return c
}

var _ relay.Metrics = (*Collectors)(nil)

func (c *Collectors) ConnAccepted() { c.connAccepted.Inc() }
func (c *Collectors) ConnOpened()   { c.connOpen.Inc() }
func (c *Collectors) ConnClosed()   { c.connOpen.Dec() }
func (c *Collectors) ConnBlocked()  { c.connBlocked.Inc() }

func (c *Collectors) MessageRouted(queued bool) {
	if queued {
		c.routed.WithLabelValues("queued").Inc()
		return
	}
	c.routed.WithLabelValues("direct").Inc()
}

func (c *Collectors) QueueDepth(entries int, bytes uint64) {
	c.queueDepth.Set(float64(entries))
	c.queueBytes.Set(float64(bytes))
}

func (c *Collectors) QueueDropped() { c.queueDropped.Inc() }

func (c *Collectors) ThreadStatus(status string, delta int) {
	c.threadsByStat.WithLabelValues(status).Add(float64(delta))
}
