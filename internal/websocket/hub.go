package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Message is a kiosk sync notification broadcast to every connected check-in
// station. Kiosks re-fetch the roster for the named event when one arrives.
type Message struct {
	Type       string  `json:"type"`
	EventID    int64   `json:"event_id"`
	KidIDs     []int64 `json:"kid_ids,omitempty"`
	ShareToken string  `json:"share_token,omitempty"`
}

// CheckinCreated announces freshly opened ledger entries for an event.
func CheckinCreated(eventID int64, kidIDs []int64) Message {
	return Message{Type: "checkin_created", EventID: eventID, KidIDs: kidIDs}
}

// CheckoutCompleted announces closed ledger entries for an event.
func CheckoutCompleted(eventID int64, kidIDs []int64) Message {
	return Message{Type: "checkout_completed", EventID: eventID, KidIDs: kidIDs}
}

// Hub maintains the set of active kiosk connections and fans messages out to
// all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger.With("component", "websocket"),
	}
}

// Register adds a kiosk connection to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a kiosk connection and closes its send channel. Safe to
// call more than once for the same client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to every connected kiosk. Kiosks with a full send
// buffer miss the message rather than block the caller; they resync on the
// next one.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// ClientCount returns the number of connected kiosks.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
