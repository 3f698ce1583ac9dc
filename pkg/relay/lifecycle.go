package relay

import (
	"errors"
	"fmt"
	"time"

	"github.com/eztransfer/signaling/pkg/history"
	"github.com/eztransfer/signaling/pkg/messages"
	"github.com/eztransfer/signaling/pkg/metrics"
	"github.com/eztransfer/signaling/pkg/peers"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// session binds a registered connection to its transport
type session struct {
	id        ConnectionID
	transport peers.Transport
	logger    *logrus.Entry
}

// Manager drives connections through their whole life: registration, message dispatch, and
// cleanup with peer notification once the transport goes away.
type Manager struct {
	hub     *Hub
	router  *Router
	history history.Storage
	metrics *metrics.Collector
	now     func() time.Time
}

// ManagerOption customizes the Manager
type ManagerOption func(*Manager)

// WithHistory makes the manager record every successful pairing
func WithHistory(storage history.Storage) ManagerOption {
	return func(m *Manager) {
		m.history = storage
	}
}

// WithManagerMetrics makes the manager count relayed and rejected messages
func WithManagerMetrics(c *metrics.Collector) ManagerOption {
	return func(m *Manager) {
		m.metrics = c
		m.router.metrics = c
	}
}

// Serve registers the transport as a new connection and handles its inbound messages one at a
// time until the transport is closed. It blocks for the whole lifetime of the connection.
func (m *Manager) Serve(transport peers.Transport) {
	s := &session{
		id:        NewConnectionID(),
		transport: transport,
	}
	s.logger = logrus.WithFields(logrus.Fields{
		"connection": s.id,
		"remote":     transport.RemoteAddr(),
	})
	m.hub.Register(s.id, s)
	s.logger.Info("Client connected")
	defer func() {
		s.logger.Info("Client disconnected")
		m.disconnect(s)
	}()

	inbound, receiveErr := transport.Receive()
	if receiveErr != nil {
		s.logger.Errorf("Failed to receive from transport: %v", receiveErr)
		return
	}
	for frame := range inbound {
		m.handle(s, frame)
	}
}

func (m *Manager) handle(s *session, frame []byte) {
	handleErr := m.dispatch(s, frame)
	if handleErr == nil {
		return
	}
	if errors.Is(handleErr, ErrUnknownConnection) {
		s.logger.Debug("Dropping message from a connection that was already removed")
		return
	}
	var internalErr InternalError
	if errors.As(handleErr, &internalErr) {
		s.logger.Errorf("Error handling message: %v", handleErr)
	} else {
		s.logger.Warnf("Rejected message: %v", handleErr)
	}
	m.metrics.Rejected(errorKind(handleErr))
	m.deliver(s, messages.NewError(ReplyFor(handleErr)))
}

func (m *Manager) dispatch(s *session, frame []byte) (dispatchErr error) {
	defer func() {
		if r := recover(); r != nil {
			dispatchErr = NewInternalError(fmt.Errorf("panic: %v", r))
		}
	}()
	e, decodeErr := messages.DeserializeBytes(frame)
	if decodeErr != nil {
		return NewProtocolError(decodeErr)
	}
	s.logger.Debugf("Handling message type '%s'", e.Type)

	switch e.Type {
	case messages.RequestCode:
		code, err := m.hub.RequestCode(s.id)
		if err != nil {
			return err
		}
		s.logger.Infof("Generated code %s", code)
		m.deliver(s, messages.NewCodeGenerated(code))
		return nil
	case messages.RequestConnection:
		code, _ := e.StringField(messages.CodeField)
		pairing, err := m.hub.RequestConnection(s.id, code)
		if err != nil {
			return err
		}
		s.logger.Infof("Paired with %s using code %s", pairing.receiver.transport.RemoteAddr(), code)
		m.record(pairing)
		m.deliver(pairing.sender, messages.NewConnectionReady())
		m.deliver(pairing.receiver, messages.NewPeerConnected())
		return nil
	case messages.SendOffer, messages.SendAnswer, messages.SendICE:
		return m.router.Forward(s.id, e)
	default:
		return UnknownMessageTypeError{Type: string(e.Type)}
	}
}

func (m *Manager) record(p Pairing) {
	if m.history == nil {
		return
	}
	if storeErr := m.history.Store(history.Record{
		Code:         p.Code,
		ReceiverID:   string(p.Receiver),
		ReceiverAddr: p.receiver.transport.RemoteAddr(),
		SenderID:     string(p.Sender),
		SenderAddr:   p.sender.transport.RemoteAddr(),
		PairedAt:     m.now(),
	}); storeErr != nil {
		logrus.Errorf("Failed to record pairing %s: %v", p.Code, storeErr)
	}
}

// deliver sends the envelope; a failed send is treated as the recipient's disconnect
func (m *Manager) deliver(to *session, e messages.Envelope) {
	if sendErr := to.transport.Send(messages.SerializeBytes(e)); sendErr != nil {
		to.logger.Warnf("Failed to send %s, dropping connection: %v", e.Type, sendErr)
		m.metrics.SendFailed()
		m.disconnect(to)
	}
}

// disconnect is idempotent; only the first call for a session finds it registered
func (m *Manager) disconnect(s *session) {
	peer, hadPeer := m.hub.Unregister(s.id)
	if closeErr := s.transport.Close(); closeErr != nil {
		s.logger.Debugf("Failed to close transport: %v", closeErr)
	}
	if !hadPeer {
		return
	}
	s.logger.Infof("Paired connection broken, notifying %s", peer.id)
	m.deliver(peer, messages.NewPeerDisconnected())
}

// CloseAll closes the transports of all live connections. Their Serve calls return once the
// cleanup is done.
func (m *Manager) CloseAll() error {
	var closeErr error
	for _, s := range m.hub.sessions() {
		closeErr = multierr.Append(closeErr, s.transport.Close())
	}
	return closeErr
}

// NewManager creates a Manager operating on given hub
func NewManager(hub *Hub, opts ...ManagerOption) *Manager {
	m := &Manager{
		hub: hub,
		now: time.Now,
	}
	m.router = &Router{hub: hub, out: m}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (h *Hub) sessions() []*session {
	var all []*session
	h.locked(func() {
		for _, c := range h.registry.connections {
			all = append(all, c.session)
		}
	})
	return all
}
