package services

import (
	"log"
	"strings"
	"sync"

	"github.com/campfire-chat/campfire-backend/internal/models"
)

const (
	EventTypeUser    = "user"
	EventTypeCount   = "user count"
	EventTypeMessage = "chat message"
)

// UserEvent announces a join or leave together with the updated count.
type UserEvent struct {
	Type         string `json:"type"`
	Name         string `json:"name"`
	CurrentUsers int    `json:"currentUsers"`
	Connected    bool   `json:"connected"`
}

// CountEvent carries just the presence count.
type CountEvent struct {
	Type         string `json:"type"`
	CurrentUsers int    `json:"currentUsers"`
}

// MessageEvent relays one chat message, tagged with the sender's name.
type MessageEvent struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// ChatConn is the minimal interface our WebSocket implementation must satisfy.
type ChatConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// ChatClient is one accepted realtime connection.
type ChatClient struct {
	user *models.User
	conn ChatConn
}

func (c *ChatClient) Name() string {
	return c.user.DisplayName()
}

// ChatHub owns the connected-client set and the presence counter. The
// counter is mutated only through Join and Leave, and all broadcasts happen
// under the hub lock, so every connection sees events in one global order
// and writes to a single connection never interleave.
type ChatHub struct {
	mu      sync.Mutex
	clients map[*ChatClient]struct{}
	count   int
}

func NewChatHub() *ChatHub {
	return &ChatHub{clients: make(map[*ChatClient]struct{})}
}

// Join accepts an authenticated connection into the broadcast group,
// increments the presence counter, and announces the join (the new
// connection receives the announcement too).
func (h *ChatHub) Join(user *models.User, conn ChatConn) *ChatClient {
	c := &ChatClient{user: user, conn: conn}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
	h.count++

	h.broadcastLocked(
		UserEvent{Type: EventTypeUser, Name: c.Name(), CurrentUsers: h.count, Connected: true},
		CountEvent{Type: EventTypeCount, CurrentUsers: h.count},
	)

	return c
}

// Leave removes a connection, decrements the counter, and announces the
// leave to the remaining connections. Safe to call more than once.
func (h *ChatHub) Leave(c *ChatClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	h.count--

	h.broadcastLocked(
		UserEvent{Type: EventTypeUser, Name: c.Name(), CurrentUsers: h.count, Connected: false},
		CountEvent{Type: EventTypeCount, CurrentUsers: h.count},
	)
}

// Relay rebroadcasts a chat message from one client to every connected
// client, sender included.
func (h *ChatHub) Relay(c *ChatClient, message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}

	h.broadcastLocked(MessageEvent{Type: EventTypeMessage, Name: c.Name(), Message: message})
}

// Count returns the current presence count.
func (h *ChatHub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func (h *ChatHub) broadcastLocked(events ...interface{}) {
	for client := range h.clients {
		for _, event := range events {
			if err := client.conn.WriteJSON(event); err != nil {
				log.Printf("error writing chat event to websocket: %v", err)
			}
		}
	}
}
