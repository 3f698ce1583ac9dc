// Package metrics exposes prometheus collectors describing the state of the signaling relay
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "eztransfer"

// Collector groups all the relay metrics. A nil *Collector is valid and records nothing.
type Collector struct {
	connections       prometheus.Gauge
	pendingCodes      prometheus.Gauge
	pairings          prometheus.Gauge
	pairingsTotal     prometheus.Counter
	relayedTotal      *prometheus.CounterVec
	rejectedTotal     *prometheus.CounterVec
	handshakeRejected *prometheus.CounterVec
	sendFailures      prometheus.Counter
}

// State is a snapshot of the relay maps
type State struct {
	Connections  int
	PendingCodes int
	Pairings     int
}

// SetState updates the gauges from a snapshot
func (c *Collector) SetState(s State) {
	if c == nil {
		return
	}
	c.connections.Set(float64(s.Connections))
	c.pendingCodes.Set(float64(s.PendingCodes))
	c.pairings.Set(float64(s.Pairings))
}

// Paired counts a successful pairing
func (c *Collector) Paired() {
	if c == nil {
		return
	}
	c.pairingsTotal.Inc()
}

// Relayed counts a signaling message forwarded to a peer
func (c *Collector) Relayed(kind string) {
	if c == nil {
		return
	}
	c.relayedTotal.WithLabelValues(kind).Inc()
}

// Rejected counts a client message answered with an error reply
func (c *Collector) Rejected(reason string) {
	if c == nil {
		return
	}
	c.rejectedTotal.WithLabelValues(reason).Inc()
}

// HandshakeRejected counts websocket connections refused before reaching the relay
func (c *Collector) HandshakeRejected(reason string) {
	if c == nil {
		return
	}
	c.handshakeRejected.WithLabelValues(reason).Inc()
}

// SendFailed counts outbound sends that failed and caused a disconnect
func (c *Collector) SendFailed() {
	if c == nil {
		return
	}
	c.sendFailures.Inc()
}

// NewCollector creates the collectors and registers them in given registerer
func NewCollector(registerer prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Number of live signaling connections",
		}),
		pendingCodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_codes",
			Help:      "Number of pairing codes waiting to be claimed",
		}),
		pairings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pairings",
			Help:      "Number of active pairings",
		}),
		pairingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairings_total",
			Help:      "Number of pairings established since start",
		}),
		relayedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relayed_messages_total",
			Help:      "Number of signaling messages forwarded to peers",
		}, []string{"type"}),
		rejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_messages_total",
			Help:      "Number of client messages answered with an error",
		}, []string{"reason"}),
		handshakeRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_handshakes_total",
			Help:      "Number of websocket connections refused during authentication",
		}, []string{"reason"}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Number of outbound sends that failed",
		}),
	}
	for _, collector := range []prometheus.Collector{
		c.connections, c.pendingCodes, c.pairings, c.pairingsTotal,
		c.relayedTotal, c.rejectedTotal, c.handshakeRejected, c.sendFailures,
	} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}
