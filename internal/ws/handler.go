package ws

import (
	"net/http"

	"partyhub/internal/http/middleware"
	"partyhub/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// HandleWS upgrades the connection and runs the client pumps. A
// returning client may pass ?playerId= to resume its identity after a
// transport drop.
func HandleWS(hub *Hub, allowedOrigin string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade failed", "err", err)
			return
		}
		middleware.ClientsConnected.Inc()

		client := NewClient(conn, hub)
		go client.Run(c.Query("playerId"))
	}
}
