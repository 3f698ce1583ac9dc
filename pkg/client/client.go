// Package client implements a signaling client, that talks to the relay the same way the browser
// clients do. It is used by the probe command and by end-to-end tests.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/eztransfer/signaling/pkg/messages"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const eventsBuffer = 64

// ErrClosed is returned when waiting for events on a connection, that is already gone
var ErrClosed = errors.New("connection closed")

// ServerError is an error reply sent by the relay
type ServerError struct {
	Message string
}

func (e ServerError) Error() string {
	return fmt.Sprintf("relay replied with an error: %s", e.Message)
}

// Client is a single signaling connection to the relay
type Client struct {
	connection *websocket.Conn
	writeLock  sync.Mutex
	events     chan messages.Envelope
	done       chan struct{}
	closeOnce  sync.Once
	readErr    error
	logger     logrus.Ext1FieldLogger
}

// Events returns all the messages received from the relay. The channel is closed when the
// connection is gone.
func (c *Client) Events() <-chan messages.Envelope {
	return c.events
}

// WaitFor discards incoming messages until one of given kind arrives. Error replies from the
// relay interrupt the wait.
func (c *Client) WaitFor(ctx context.Context, kind messages.Kind) (messages.Envelope, error) {
	for {
		select {
		case <-ctx.Done():
			return messages.Envelope{}, fmt.Errorf("waiting for %s: %w", kind, ctx.Err())
		case e, ok := <-c.events:
			if !ok {
				return messages.Envelope{}, c.closedErr()
			}
			if e.Type == kind {
				return e, nil
			}
			if e.Type == messages.Error {
				text, _ := e.StringField(messages.MessageField)
				return e, ServerError{Message: text}
			}
			c.logger.Debugf("Skipping %s while waiting for %s", e.Type, kind)
		}
	}
}

func (c *Client) closedErr() error {
	if c.readErr != nil {
		return fmt.Errorf("%w: %v", ErrClosed, c.readErr)
	}
	return ErrClosed
}

// RequestCode asks the relay for a pairing code and waits until it is generated
func (c *Client) RequestCode(ctx context.Context) (string, error) {
	if err := c.Send(messages.NewRequestCode()); err != nil {
		return "", err
	}
	e, err := c.WaitFor(ctx, messages.CodeGenerated)
	if err != nil {
		return "", err
	}
	code, ok := e.StringField(messages.CodeField)
	if !ok {
		return "", fmt.Errorf("%s does not contain a code", messages.CodeGenerated)
	}
	return code, nil
}

// RequestConnection claims the code and waits until the relay confirms the pairing
func (c *Client) RequestConnection(ctx context.Context, code string) error {
	if err := c.Send(messages.NewRequestConnection(code)); err != nil {
		return err
	}
	_, err := c.WaitFor(ctx, messages.ConnectionReady)
	return err
}

// Send writes a single envelope to the relay
func (c *Client) Send(e messages.Envelope) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	if err := c.connection.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return err
	}
	return c.connection.WriteMessage(websocket.TextMessage, messages.SerializeBytes(e))
}

func (c *Client) readWorker() {
	defer close(c.events)
	for {
		_, frame, readErr := c.connection.ReadMessage()
		if readErr != nil {
			c.readErr = readErr
			return
		}
		e, decodeErr := messages.DeserializeBytes(frame)
		if decodeErr != nil {
			c.logger.Warnf("Ignoring message from the relay: %v", decodeErr)
			continue
		}
		c.logger.Tracef("Received %s", e.Type)
		select {
		case c.events <- e:
		case <-c.done:
			return
		}
	}
}

// Close sends a normal closure frame and closes the connection
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeLock.Lock()
		writeErr := c.connection.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeLock.Unlock()
		if errors.Is(writeErr, websocket.ErrCloseSent) {
			writeErr = nil
		}
		err = multierr.Combine(writeErr, c.connection.Close())
	})
	return err
}

// WebsocketURL converts the HTTP address of the relay into the address of its websocket endpoint
func WebsocketURL(baseURL, token string) (string, error) {
	parsed, parseErr := url.Parse(baseURL)
	if parseErr != nil {
		return "", fmt.Errorf("invalid server address %s: %w", baseURL, parseErr)
	}
	switch parsed.Scheme {
	case "http", "ws":
		parsed.Scheme = "ws"
	case "https", "wss":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q in %s", parsed.Scheme, baseURL)
	}
	parsed.Path = "/ws"
	query := url.Values{}
	query.Set("token", token)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// Dial opens a signaling connection to the relay running at baseURL, authenticating with the token
func Dial(ctx context.Context, baseURL, token string) (*Client, error) {
	wsURL, urlErr := WebsocketURL(baseURL, token)
	if urlErr != nil {
		return nil, urlErr
	}
	connection, resp, dialErr := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if dialErr != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", baseURL, dialErr)
	}
	c := &Client{
		connection: connection,
		events:     make(chan messages.Envelope, eventsBuffer),
		done:       make(chan struct{}),
		logger:     logrus.WithField("relay", baseURL),
	}
	go c.readWorker()
	return c, nil
}
