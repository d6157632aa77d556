package http

import (
	"net/http"

	"partyhub/internal/config"
	"partyhub/internal/ws"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires the gin engine: the websocket entry point and a
// liveness probe. Metrics are mounted separately in main.
func RegisterRoutes(r *gin.Engine, hub *ws.Hub, cfg *config.Config) {
	r.GET("/ws", ws.HandleWS(hub, cfg.AllowedOrigin))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
