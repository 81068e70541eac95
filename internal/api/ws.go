package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"marketplace_system/internal/notify"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NotificationsWSHandler upgrades the connection and streams the user's
// order notifications until the peer disconnects.
func NotificationsWSHandler(hub *notify.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userID").(uint)
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		hub.Register(conn, userID) // Blocks for the connection lifetime
	}
}
