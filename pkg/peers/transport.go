package peers

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrTransportClosed is returned when sending over a transport that was already closed
var ErrTransportClosed = errors.New("transport is closed")

// Transport is a duplex, message oriented connection to a single client
type Transport interface {
	Send([]byte) error
	// Receive returns a channel with inbound frames. The channel is closed once the transport is
	// closed, either locally or by the remote side.
	Receive() (<-chan []byte, error)
	Close() error
	RemoteAddr() string
}

// MockTransport implements Transport and can be used for unit tests
type MockTransport struct {
	// Outbound holds frames sent over the transport
	Outbound chan []byte

	inbound   chan []byte
	received  chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	recvOnce  sync.Once
	failSends atomic.Bool
	addr      string
}

// Send implements Transport
func (transport *MockTransport) Send(frame []byte) error {
	if transport.failSends.Load() {
		return errors.New("mock send failure")
	}
	select {
	case <-transport.closed:
		return ErrTransportClosed
	default:
	}
	select {
	case transport.Outbound <- frame:
		return nil
	case <-transport.closed:
		return ErrTransportClosed
	}
}

// Receive implements Transport
func (transport *MockTransport) Receive() (<-chan []byte, error) {
	transport.recvOnce.Do(func() {
		go func() {
			defer close(transport.received)
			for {
				select {
				case frame := <-transport.inbound:
					select {
					case transport.received <- frame:
					case <-transport.closed:
						return
					}
				case <-transport.closed:
					return
				}
			}
		}()
	})
	return transport.received, nil
}

// Close implements Transport
func (transport *MockTransport) Close() error {
	transport.closeOnce.Do(func() {
		close(transport.closed)
	})
	return nil
}

// RemoteAddr implements Transport
func (transport *MockTransport) RemoteAddr() string {
	return transport.addr
}

// Deliver simulates a frame sent by the remote side. It returns false if the transport is closed.
func (transport *MockTransport) Deliver(frame []byte) bool {
	select {
	case transport.inbound <- frame:
		return true
	case <-transport.closed:
		return false
	}
}

// FailSends makes all subsequent Send calls fail, as if the remote side vanished
func (transport *MockTransport) FailSends() {
	transport.failSends.Store(true)
}

// IsClosed checks if Close was called
func (transport *MockTransport) IsClosed() bool {
	select {
	case <-transport.closed:
		return true
	default:
		return false
	}
}

// NewMockTransport creates a MockTransport pretending to be connected from given address
func NewMockTransport(addr string) *MockTransport {
	return &MockTransport{
		Outbound: make(chan []byte, 255),
		inbound:  make(chan []byte),
		received: make(chan []byte),
		closed:   make(chan struct{}),
		addr:     addr,
	}
}
