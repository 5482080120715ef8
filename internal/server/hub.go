package server

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/glucometer/internal/logging"
)

// sendBuffer is the number of queued messages per client
const sendBuffer = 64

// Event is one feed message
type Event struct {
	Glucose   int    `json:"glucose"`
	Timestamp string `json:"timestamp"`
	Device    string `json:"device"`
	Session   string `json:"session,omitempty"`
}

// Hub fans events out to connected feed clients
type Hub struct {
	mu        sync.Mutex
	clients   map[*client]struct{}
	closed    bool
	published uint64
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// Publish queues ev for every client. Clients that cannot keep up are dropped.
func (h *Hub) Publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		logging.Error("Failed to encode feed event", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.published++
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			logging.Warn("Dropping slow feed client", zap.String("remote_addr", c.remote))
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// Len returns the number of connected clients
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Published returns how many events have been published
func (h *Hub) Published() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.published
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Close disconnects every client and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
