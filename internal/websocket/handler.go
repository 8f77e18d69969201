package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs registers the connection with the hub and blocks until it closes,
// since fiber tears the connection down once the handler returns.
func ServeWs(hub *Hub, c *websocket.Conn, userID uuid.UUID) {
	client := newClient(hub, c, userID)
	if !hub.join(client) {
		// shutting down
		c.Close()
		return
	}

	go client.push()
	client.listen()
}
