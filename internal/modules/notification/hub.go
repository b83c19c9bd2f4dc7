package notification

import (
	"sync"
	"time"

	"docverify/internal/domain"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Client is one live websocket connection.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *Client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *Client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Hub keeps the latest live connection per user.
type Hub struct {
	clients map[string]*Client
	mutex   sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func (h *Hub) Register(userID string, conn *websocket.Conn) *Client {
	c := &Client{conn: conn}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	if old, ok := h.clients[userID]; ok && old != nil {
		_ = old.conn.Close()
	}
	h.clients[userID] = c
	return c
}

// Unregister drops c if it is still the current connection of userID.
func (h *Hub) Unregister(userID string, c *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if cur, ok := h.clients[userID]; ok && cur == c {
		delete(h.clients, userID)
	}
	_ = c.conn.Close()
}

func (h *Hub) SendToUser(userID string, message any) bool {
	h.mutex.RLock()
	c, ok := h.clients[userID]
	h.mutex.RUnlock()
	if !ok || c == nil {
		return false
	}

	if err := c.writeJSON(message); err != nil {
		h.Unregister(userID, c)
		return false
	}
	return true
}

func (h *Hub) IsOnline(userID string) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for id, c := range h.clients {
		_ = c.conn.Close()
		delete(h.clients, id)
	}
}

type Event struct {
	Type         string               `json:"type"`
	Notification *domain.Notification `json:"notification,omitempty"`
}

func NewNotificationEvent(n *domain.Notification) Event {
	return Event{Type: "notification", Notification: n}
}
