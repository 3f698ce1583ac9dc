package peers

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const writeWait = 5 * time.Second

type websocketTransport struct {
	connection   *websocket.Conn
	remoteAddr   string
	pingInterval time.Duration

	writeChan chan writeChanRequest
	readChan  chan []byte
	readOnce  sync.Once
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error

	logger *logrus.Entry
}

type writeChanRequest struct {
	frame   []byte
	errChan chan error
}

func (wt *websocketTransport) Send(frame []byte) error {
	request := writeChanRequest{
		frame:   frame,
		errChan: make(chan error, 1),
	}
	select {
	case <-wt.done:
		return ErrTransportClosed
	default:
	}
	select {
	case wt.writeChan <- request:
	case <-wt.done:
		return ErrTransportClosed
	}
	select {
	case theErr := <-request.errChan:
		return theErr
	case <-wt.done:
		return ErrTransportClosed
	}
}

// sendWorker is the only goroutine writing to the websocket connection
func (wt *websocketTransport) sendWorker() {
	wt.logger.Trace("Started websocket sending worker")
	defer wt.logger.Trace("Stopped websocket sending worker")

	var pings <-chan time.Time
	if wt.pingInterval > 0 {
		ticker := time.NewTicker(wt.pingInterval)
		defer ticker.Stop()
		pings = ticker.C
	}
	for {
		select {
		case request := <-wt.writeChan:
			_ = wt.connection.SetWriteDeadline(time.Now().Add(writeWait))
			if writeErr := wt.connection.WriteMessage(websocket.TextMessage, request.frame); writeErr != nil {
				request.errChan <- fmt.Errorf("failed writing message to websocket: %w", writeErr)
				continue
			}
			wt.logger.Tracef("Wrote websocket message %s", string(request.frame))
			request.errChan <- nil
		case <-pings:
			if pingErr := wt.connection.WriteControl(
				websocket.PingMessage, nil, time.Now().Add(writeWait),
			); pingErr != nil {
				wt.logger.Debugf("Failed to ping websocket, closing: %v", pingErr)
				_ = wt.Close()
				return
			}
		case <-wt.done:
			return
		}
	}
}

func (wt *websocketTransport) Receive() (<-chan []byte, error) {
	wt.readOnce.Do(func() {
		go wt.readWorker()
	})
	return wt.readChan, nil
}

func (wt *websocketTransport) readWorker() {
	defer close(wt.readChan)
	defer wt.logger.Trace("Websocket receive goroutine shutdown")
	if wt.pingInterval > 0 {
		pongWait := 2 * wt.pingInterval
		_ = wt.connection.SetReadDeadline(time.Now().Add(pongWait))
		wt.connection.SetPongHandler(func(string) error {
			return wt.connection.SetReadDeadline(time.Now().Add(pongWait))
		})
	}
	for {
		_, msg, readMessageErr := wt.connection.ReadMessage()
		if readMessageErr != nil {
			if websocket.IsUnexpectedCloseError(
				readMessageErr, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived,
			) {
				wt.logger.Debugf("Websocket closed unexpectedly: %v", readMessageErr)
			}
			_ = wt.Close()
			return
		}
		wt.logger.Tracef("Got websocket message %s", string(msg))
		select {
		case wt.readChan <- msg:
		case <-wt.done:
			return
		}
	}
}

func (wt *websocketTransport) Close() error {
	wt.closeOnce.Do(func() {
		close(wt.done)
		if closeErr := wt.connection.Close(); closeErr != nil {
			wt.closeErr = fmt.Errorf("failed closing websocket connection: %w", closeErr)
		}
	})
	return wt.closeErr
}

func (wt *websocketTransport) RemoteAddr() string {
	return wt.remoteAddr
}

// NewWebsocketTransport creates Transport instances over an established websocket connection.
// A non-zero pingInterval enables ping/pong keepalive: a peer that does not answer within two
// intervals is considered gone.
func NewWebsocketTransport(connection *websocket.Conn, remoteAddr string, pingInterval time.Duration) Transport {
	transport := &websocketTransport{
		connection:   connection,
		remoteAddr:   remoteAddr,
		pingInterval: pingInterval,
		writeChan:    make(chan writeChanRequest),
		readChan:     make(chan []byte),
		done:         make(chan struct{}),
		logger:       logrus.WithField("remote", remoteAddr),
	}
	go transport.sendWorker()
	return transport
}

// WriteClose sends a close frame with given code and reason and closes the connection. It is used
// to reject connections before they are handed over to a Transport.
func WriteClose(connection *websocket.Conn, code int, reason string) {
	_ = connection.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeWait),
	)
	_ = connection.Close()
}
