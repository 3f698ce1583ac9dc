package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/eztransfer/signaling/pkg/auth"
	"github.com/eztransfer/signaling/pkg/metrics"
	"github.com/eztransfer/signaling/pkg/peers"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// TokenValidator checks tokens presented when opening the websocket
type TokenValidator interface {
	Validate(token string) error
}

// ConnectionServer takes over an authenticated transport for its whole lifetime
type ConnectionServer interface {
	Serve(peers.Transport)
}

type signalingController struct {
	validator    TokenValidator
	server       ConnectionServer
	pingInterval time.Duration
	metrics      *metrics.Collector
	upgrader     websocket.Upgrader
}

func (sc *signalingController) registerRoutes(r *gin.Engine, _ ServerSettings) {
	r.GET("/ws", func(c *gin.Context) {
		remoteAddr := c.Request.RemoteAddr
		connection, upgradeErr := sc.upgrader.Upgrade(c.Writer, c.Request, nil)
		if upgradeErr != nil {
			logrus.Warnf("Failed to upgrade connection from %s: %v", remoteAddr, upgradeErr)
			return
		}
		if validateErr := sc.validator.Validate(c.Query("token")); validateErr != nil {
			logrus.Warnf("Unauthorized connection attempt from %s: %v", remoteAddr, validateErr)
			sc.metrics.HandshakeRejected(rejectionReason(validateErr))
			peers.WriteClose(connection, websocket.ClosePolicyViolation, validateErr.Error())
			return
		}
		sc.server.Serve(peers.NewWebsocketTransport(connection, remoteAddr, sc.pingInterval))
	})
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return "missing_token"
	case errors.Is(err, auth.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, auth.ErrTokenExpired):
		return "expired"
	default:
		return "malformed"
	}
}

// NewSignalingController bootstraps creation of the websocket endpoint. Connections presenting a
// valid token are handed over to the server, all others are closed with a policy violation.
func NewSignalingController(
	validator TokenValidator,
	server ConnectionServer,
	pingInterval time.Duration,
	collector *metrics.Collector,
) Controller {
	return &signalingController{
		validator:    validator,
		server:       server,
		pingInterval: pingInterval,
		metrics:      collector,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}
