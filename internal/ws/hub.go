package ws

import (
	"encoding/json"
	"sync"
)

// Client represents a single WebSocket connection with user context.
type Client struct {
	UserID uint
	Send   chan []byte
	hub    *Hub
	mu     sync.Mutex
	closed bool
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
	if c.hub != nil {
		c.hub.unregister(c)
	}
}

// Hub maintains connected clients, indexes them per user, and tracks which
// conversation rooms each connection has joined. Room membership is the
// presence signal: a user "viewing" a conversation is one with at least one
// connection joined to its room.
type Hub struct {
	mu sync.RWMutex
	// userID -> clients (one user can have multiple connections)
	byUser map[uint]map[*Client]struct{}
	// conversationID -> clients
	rooms map[uint]map[*Client]struct{}
	// client -> conversationIDs, for cleanup on disconnect
	joined map[*Client]map[uint]struct{}
}

func NewHub() *Hub {
	return &Hub{
		byUser: make(map[uint]map[*Client]struct{}),
		rooms:  make(map[uint]map[*Client]struct{}),
		joined: make(map[*Client]map[uint]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.hub = h
	if h.byUser[c.UserID] == nil {
		h.byUser[c.UserID] = make(map[*Client]struct{})
	}
	h.byUser[c.UserID][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.byUser[c.UserID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byUser, c.UserID)
		}
	}
	for convID := range h.joined[c] {
		if room := h.rooms[convID]; room != nil {
			delete(room, c)
			if len(room) == 0 {
				delete(h.rooms, convID)
			}
		}
	}
	delete(h.joined, c)
}

func (h *Hub) JoinRoom(conversationID uint, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[conversationID] == nil {
		h.rooms[conversationID] = make(map[*Client]struct{})
	}
	h.rooms[conversationID][c] = struct{}{}
	if h.joined[c] == nil {
		h.joined[c] = make(map[uint]struct{})
	}
	h.joined[c][conversationID] = struct{}{}
}

func (h *Hub) LeaveRoom(conversationID uint, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room := h.rooms[conversationID]; room != nil {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, conversationID)
		}
	}
	if m := h.joined[c]; m != nil {
		delete(m, conversationID)
	}
}

// IsViewing reports whether the user has at least one connection joined to
// the conversation room.
func (h *Hub) IsViewing(conversationID, userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[conversationID] {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

// ToUser sends the event to every connection of the user. Best-effort: a
// slow connection with a full buffer is skipped.
func (h *Hub) ToUser(userID uint, event string, payload map[string]interface{}) {
	data := envelope(event, payload)
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.byUser[userID]))
	for c := range h.byUser[userID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		select {
		case c.Send <- data:
		default:
		}
	}
}

// ToConversation sends the event to every connection in the room, except
// those of exceptUserID (pass 0 to broadcast to everyone).
func (h *Hub) ToConversation(conversationID, exceptUserID uint, event string, payload map[string]interface{}) {
	data := envelope(event, payload)
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[conversationID]))
	for c := range h.rooms[conversationID] {
		if exceptUserID != 0 && c.UserID == exceptUserID {
			continue
		}
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		select {
		case c.Send <- data:
		default:
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, m := range h.byUser {
		n += len(m)
	}
	return n
}

func envelope(event string, payload map[string]interface{}) []byte {
	body := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["type"] = event
	data, _ := json.Marshal(body)
	return data
}
