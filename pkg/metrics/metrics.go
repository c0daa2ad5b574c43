// Package metrics exposes the outbound queue's Prometheus surface:
// queue depth, in-flight sends, dispatch counts and failure counts,
// grounded in the same client_golang idioms the wider neo-go fork's
// dependency set carries for its own node metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/CityOfZion/neoq/pkg/gossip"
)

// Collector bundles the gauges and counters neoq publishes. A nil
// *Collector is valid and every method on it is a no-op, so wiring
// metrics into OutboundQ stays optional.
type Collector struct {
	queueSize  *prometheus.GaugeVec
	inFlight   *prometheus.GaugeVec
	dispatched *prometheus.CounterVec
	failures   *prometheus.CounterVec
}

// NewCollector builds a Collector and registers it against reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		queueSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "neoq",
			Name:      "queue_size",
			Help:      "Number of packets currently scheduled, by precedence.",
		}, []string{"precedence"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "neoq",
			Name:      "inflight",
			Help:      "Number of unacknowledged sends currently outstanding, by destination type.",
		}, []string{"dest_type"}),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neoq",
			Name:      "dispatched_total",
			Help:      "Total packets handed to SendMsg, by message type.",
		}, []string{"msg_type"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neoq",
			Name:      "failures_total",
			Help:      "Total SendMsg failures, by destination type.",
		}, []string{"dest_type"}),
	}
	reg.MustRegister(c.queueSize, c.inFlight, c.dispatched, c.failures)
	return c
}

// SetQueueSize reports the current scheduled count at a precedence.
func (c *Collector) SetQueueSize(prec gossip.Precedence, n int) {
	if c == nil {
		return
	}
	c.queueSize.WithLabelValues(prec.String()).Set(float64(n))
}

// IncInFlight records one more outstanding send to a destination type.
func (c *Collector) IncInFlight(destType gossip.NodeType) {
	if c == nil {
		return
	}
	c.inFlight.WithLabelValues(destType.String()).Inc()
}

// DecInFlight records one fewer outstanding send to a destination type.
func (c *Collector) DecInFlight(destType gossip.NodeType) {
	if c == nil {
		return
	}
	c.inFlight.WithLabelValues(destType.String()).Dec()
}

// IncDispatched records one packet handed to SendMsg.
func (c *Collector) IncDispatched(msgType gossip.MsgType) {
	if c == nil {
		return
	}
	c.dispatched.WithLabelValues(msgType.String()).Inc()
}

// IncFailures records one SendMsg failure.
func (c *Collector) IncFailures(destType gossip.NodeType) {
	if c == nil {
		return
	}
	c.failures.WithLabelValues(destType.String()).Inc()
}
