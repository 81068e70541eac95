package notify

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// wsClient pairs a connection with its write lock. Gorilla websocket
// connections support one concurrent writer, so every write goes
// through the client's mutex.
type wsClient struct {
	conn   *websocket.Conn
	userID uint
	mu     sync.Mutex // Serializes writes on conn
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub fans order events out to connected websocket clients, keyed by
// user id so each client only sees its own notifications.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]*wsClient
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]*wsClient)}
}

// Register adds a connection for a user and blocks reading it until the
// peer goes away.
func (h *Hub) Register(conn *websocket.Conn, userID uint) {
	client := &wsClient{conn: conn, userID: userID}
	h.mu.Lock()
	h.clients[conn] = client
	h.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// Push sends a JSON payload to every connection owned by userID.
// Failures drop the message; websocket delivery is best-effort.
func (h *Hub) Push(userID uint, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logrus.WithField("user_id", userID).Warn("Failed to encode push payload")
		return
	}
	h.mu.RLock()
	targets := make([]*wsClient, 0, len(h.clients))
	for _, client := range h.clients {
		if client.userID == userID {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		if err := client.write(data); err != nil {
			logrus.WithField("user_id", userID).Debug("Websocket push failed")
		}
	}
}
