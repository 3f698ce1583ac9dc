package relay

import (
	"github.com/eztransfer/signaling/pkg/messages"
	"github.com/eztransfer/signaling/pkg/metrics"
)

// relayedKinds is the closed mapping between what a client sends and what its peer receives
var relayedKinds = map[messages.Kind]messages.Kind{
	messages.SendOffer:  messages.OfferReceived,
	messages.SendAnswer: messages.AnswerReceived,
	messages.SendICE:    messages.ICEReceived,
}

// Translate returns the kind a relayed message is delivered as
func Translate(kind messages.Kind) (messages.Kind, error) {
	translated, ok := relayedKinds[kind]
	if !ok {
		return "", UnknownMessageTypeError{Type: string(kind)}
	}
	return translated, nil
}

type deliverer interface {
	deliver(to *session, e messages.Envelope)
}

// Router forwards signaling messages between paired connections
type Router struct {
	hub     *Hub
	out     deliverer
	metrics *metrics.Collector
}

// Forward delivers the message to the peer of the connection, with its type translated and all
// other fields unchanged. A failed delivery is handled as the peer's disconnect and is not
// reported back to the sender.
func (r *Router) Forward(id ConnectionID, e messages.Envelope) error {
	peer, peerErr := r.hub.peerOf(id)
	if peerErr != nil {
		return peerErr
	}
	translated, translateErr := Translate(e.Type)
	if translateErr != nil {
		return translateErr
	}
	r.out.deliver(peer, messages.WithType(e, translated))
	r.metrics.Relayed(string(translated))
	return nil
}

// peerOf returns the session of the peer captured when the pairing was created
func (h *Hub) peerOf(id ConnectionID) (*session, error) {
	var peer *session
	var err error
	h.locked(func() {
		c, ok := h.registry.get(id)
		if !ok {
			err = ErrUnknownConnection
			return
		}
		if c.peer == nil {
			err = ErrNotPaired
			return
		}
		peer = c.peer.session
	})
	return peer, err
}
