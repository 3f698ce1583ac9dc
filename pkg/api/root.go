package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const rootPage = `<!DOCTYPE html>
<html>
    <head>
        <title>ezTransfer Signaling Server</title>
    </head>
    <body>
        <h1>ezTransfer Signaling Server is running!</h1>
        <p>Connect via WebSocket at /ws</p>
    </body>
</html>
`

type rootController struct{}

func (rc *rootController) registerRoutes(r *gin.Engine, _ ServerSettings) {
	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(rootPage))
	})
}

// NewRootController serves the informational landing page
func NewRootController() Controller {
	return &rootController{}
}
