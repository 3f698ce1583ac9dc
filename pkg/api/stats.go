package api

import (
	"net/http"
	"strconv"

	"github.com/eztransfer/signaling/pkg/history"
	"github.com/eztransfer/signaling/pkg/relay"
	"github.com/gin-gonic/gin"
)

const defaultPairingsLimit = 100

// StatsSource reports the live state of the relay
type StatsSource interface {
	Stats() relay.Stats
}

type statsController struct {
	stats   StatsSource
	history history.Storage
}

func (sc *statsController) registerRoutes(r *gin.Engine, s ServerSettings) {
	r.GET("/api/stats/v1", func(c *gin.Context) {
		c.JSON(http.StatusOK, sc.stats.Stats())
	})

	pairings := r.Group("/api/pairings")
	if s.BasicAuthEnabled {
		pairings.Use(RequireBasicAuth(s))
	}
	pairings.GET("v1", func(c *gin.Context) {
		limit := defaultPairingsLimit
		if rawLimit := c.Query("limit"); rawLimit != "" {
			parsed, parseErr := strconv.Atoi(rawLimit)
			if parseErr != nil || parsed < 0 {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "limit must be a non-negative integer",
				})
				return
			}
			limit = parsed
		}
		records, err := sc.history.List(limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, records)
	})
}

// NewStatsController bootstraps creation of the API that displays live counts and the pairing
// history
func NewStatsController(stats StatsSource, storage history.Storage) Controller {
	return &statsController{stats: stats, history: storage}
}
