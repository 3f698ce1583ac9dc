package relay

import (
	"time"

	"github.com/google/uuid"
)

// ConnectionID identifies a single live connection. It is generated when the transport is accepted
// and never reused.
type ConnectionID string

// NewConnectionID generates a fresh ConnectionID
func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.New().String())
}

// Role is the state of a connection in the pairing state machine
type Role int

// Unassigned -> PendingReceiver -> Paired, or Unassigned -> Paired for senders
const (
	Unassigned Role = iota
	PendingReceiver
	Paired
)

func (r Role) String() string {
	switch r {
	case Unassigned:
		return "unassigned"
	case PendingReceiver:
		return "pending-receiver"
	case Paired:
		return "paired"
	}
	return "unknown"
}

// connection is the registry entry of a single live connection
type connection struct {
	id          ConnectionID
	session     *session
	role        Role
	code        string
	peer        *connection
	connectedAt time.Time
}

// registry holds the three maps describing the relay state. It is not safe for concurrent use,
// the Hub serializes all access to it.
type registry struct {
	connections map[ConnectionID]*connection
	pending     map[string]*connection
	pairs       map[ConnectionID]*connection
}

func (r *registry) register(id ConnectionID, s *session, now time.Time) *connection {
	if existing, ok := r.connections[id]; ok {
		return existing
	}
	c := &connection{
		id:          id,
		session:     s,
		role:        Unassigned,
		connectedAt: now,
	}
	r.connections[id] = c
	return c
}

// unregister removes the connection from every map and breaks its pairing on both sides. It
// returns the former peer, if there was one.
func (r *registry) unregister(id ConnectionID) (*connection, bool) {
	c, ok := r.connections[id]
	if !ok {
		return nil, false
	}
	delete(r.connections, id)

	if c.code != "" {
		if owner, pendingOk := r.pending[c.code]; pendingOk && owner == c {
			delete(r.pending, c.code)
		}
		c.code = ""
	}

	peer, paired := r.pairs[id]
	delete(r.pairs, id)
	c.peer = nil
	if !paired {
		return nil, false
	}
	delete(r.pairs, peer.id)
	peer.peer = nil
	// the survivor may request or claim a new code without reconnecting
	peer.role = Unassigned
	return peer, true
}

func (r *registry) get(id ConnectionID) (*connection, bool) {
	c, ok := r.connections[id]
	return c, ok
}

func (r *registry) stats() Stats {
	return Stats{
		Connections:  len(r.connections),
		PendingCodes: len(r.pending),
		Pairings:     len(r.pairs) / 2,
	}
}

func newRegistry() *registry {
	return &registry{
		connections: make(map[ConnectionID]*connection),
		pending:     make(map[string]*connection),
		pairs:       make(map[ConnectionID]*connection),
	}
}

// Stats summarizes the current state of the relay
type Stats struct {
	Connections  int `json:"connections"`
	PendingCodes int `json:"pending_codes"`
	Pairings     int `json:"pairings"`
}
