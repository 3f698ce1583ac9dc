package relay

import (
	"sync"
	"time"

	"github.com/eztransfer/signaling/pkg/metrics"
)

// Hub owns the whole relay state: roles, pending codes and pairings. A single lock guards all of
// them, so consuming a code and creating the pairing is observed as one step by concurrent
// callers.
type Hub struct {
	lock     sync.Mutex
	registry *registry
	codes    CodeSource
	metrics  *metrics.Collector
	now      func() time.Time
}

// HubOption customizes the Hub
type HubOption func(*Hub)

// WithCodeSource replaces the random code source
func WithCodeSource(source CodeSource) HubOption {
	return func(h *Hub) {
		h.codes = source
	}
}

// WithMetrics makes the hub report its state to given collector
func WithMetrics(c *metrics.Collector) HubOption {
	return func(h *Hub) {
		h.metrics = c
	}
}

// Register adds a connection in Unassigned state
func (h *Hub) Register(id ConnectionID, s *session) {
	h.locked(func() {
		h.registry.register(id, s, h.now())
	})
}

// Unregister removes the connection from every structure, regardless of its state. It returns the
// session of the former peer, so the caller can notify it.
func (h *Hub) Unregister(id ConnectionID) (*session, bool) {
	var peer *connection
	var hadPeer bool
	h.locked(func() {
		peer, hadPeer = h.registry.unregister(id)
	})
	if !hadPeer {
		return nil, false
	}
	return peer.session, true
}

// Role returns the current role of the connection
func (h *Hub) Role(id ConnectionID) (Role, bool) {
	var role Role
	var ok bool
	h.locked(func() {
		var c *connection
		c, ok = h.registry.get(id)
		if ok {
			role = c.role
		}
	})
	return role, ok
}

// IsPending checks if the code waits to be claimed
func (h *Hub) IsPending(code string) bool {
	var ok bool
	h.locked(func() {
		_, ok = h.registry.pending[code]
	})
	return ok
}

// Stats returns the current number of connections, pending codes and pairings
func (h *Hub) Stats() Stats {
	var s Stats
	h.locked(func() {
		s = h.registry.stats()
	})
	return s
}

func (h *Hub) locked(f func()) {
	h.lock.Lock()
	defer h.lock.Unlock()
	f()
	s := h.registry.stats()
	h.metrics.SetState(metrics.State{
		Connections:  s.Connections,
		PendingCodes: s.PendingCodes,
		Pairings:     s.Pairings,
	})
}

// NewHub creates an empty Hub
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		registry: newRegistry(),
		codes:    NewRandomCodeSource(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}
