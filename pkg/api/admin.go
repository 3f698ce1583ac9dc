// Package api contains the HTTP surface of the relay: token issuance, the signaling websocket
// and a few read-only administrative endpoints
package api

import (
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// ServerSettings holds the settings shared by all controllers
type ServerSettings struct {
	BasicAuthEnabled  bool
	BasicAuthUsername string
	BasicAuthPassword string

	AllowedOrigins []string
}

// Controller contains a set of functionalities for the API
type Controller interface {
	registerRoutes(r *gin.Engine, s ServerSettings)
}

// NewAPI bootstraps the creation of the gin engine
func NewAPI(controllers []Controller, s ServerSettings) (*gin.Engine, error) {
	r := gin.Default()
	if len(s.AllowedOrigins) > 0 {
		corsConfig := cors.Config{
			AllowOrigins:     s.AllowedOrigins,
			AllowMethods:     []string{"GET"},
			AllowHeaders:     []string{"*"},
			AllowCredentials: true,
		}
		if validateErr := corsConfig.Validate(); validateErr != nil {
			return nil, fmt.Errorf("invalid CORS origins: %w", validateErr)
		}
		r.Use(cors.New(corsConfig))
	}
	for _, controller := range controllers {
		controller.registerRoutes(r, s)
	}
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "Signaling relay is up. Peers still have to find their own way to each other.",
		})
	})
	return r, nil
}
