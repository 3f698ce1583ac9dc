package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorTracksState(t *testing.T) {
	// given
	c, err := NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	// when
	c.SetState(State{Connections: 3, PendingCodes: 1, Pairings: 1})
	c.Paired()
	c.Relayed("offer_received")
	c.Relayed("offer_received")
	c.Rejected("not_paired")

	// then
	assert.Equal(t, 3.0, testutil.ToFloat64(c.connections))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.pendingCodes))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.pairings))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.pairingsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.relayedTotal.WithLabelValues("offer_received")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rejectedTotal.WithLabelValues("not_paired")))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.SetState(State{Connections: 1})
		c.Paired()
		c.Relayed("x")
		c.Rejected("y")
		c.HandshakeRejected("z")
		c.SendFailed()
	})
}

func TestRegisteringTwiceFails(t *testing.T) {
	// given
	registry := prometheus.NewRegistry()
	_, firstErr := NewCollector(registry)

	// when
	_, secondErr := NewCollector(registry)

	// then
	assert.NoError(t, firstErr)
	assert.Error(t, secondErr)
}
