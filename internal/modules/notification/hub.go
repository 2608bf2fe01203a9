package notification

import (
	"sync"

	"github.com/gorilla/websocket"
)

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub keeps live websocket connections per inbox key. A user may be connected
// from several tabs, and every admin connection is also filed under
// domain.AdminAudience.
type Hub struct {
	clients map[string]map[*websocket.Conn]*client
	mutex   sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*websocket.Conn]*client)}
}

func (h *Hub) Register(conn *websocket.Conn, keys ...string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	cl := &client{conn: conn}
	for _, key := range keys {
		set, ok := h.clients[key]
		if !ok {
			set = make(map[*websocket.Conn]*client)
			h.clients[key] = set
		}
		set[conn] = cl
	}
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for key, set := range h.clients {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.clients, key)
		}
	}
	_ = conn.Close()
}

// Push writes message to every connection filed under key and returns how many
// received it. Broken connections are dropped.
func (h *Hub) Push(key string, message interface{}) int {
	h.mutex.RLock()
	targets := make([]*client, 0, len(h.clients[key]))
	for _, cl := range h.clients[key] {
		targets = append(targets, cl)
	}
	h.mutex.RUnlock()

	sent := 0
	for _, cl := range targets {
		if err := cl.write(message); err != nil {
			h.Unregister(cl.conn)
			continue
		}
		sent++
	}
	return sent
}

func (h *Hub) OnlineCount(key string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients[key])
}

func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	closed := make(map[*websocket.Conn]bool)
	for key, set := range h.clients {
		for conn := range set {
			if !closed[conn] {
				_ = conn.Close()
				closed[conn] = true
			}
		}
		delete(h.clients, key)
	}
}
