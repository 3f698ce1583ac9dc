package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TokenIssuer creates tokens accepted by the signaling endpoint
type TokenIssuer interface {
	Issue() (string, error)
}

type tokenController struct {
	issuer TokenIssuer
}

func (tc *tokenController) registerRoutes(r *gin.Engine, _ ServerSettings) {
	r.GET("/api/get-ws-token", func(c *gin.Context) {
		token, err := tc.issuer.Issue()
		if err != nil {
			logrus.Errorf("Failed to issue token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"token": token,
		})
	})
}

// NewTokenController bootstraps creation of the API that hands out websocket tokens
func NewTokenController(issuer TokenIssuer) Controller {
	return &tokenController{issuer: issuer}
}
