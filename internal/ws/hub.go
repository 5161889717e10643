package ws

import (
	"sync"

	"github.com/gorilla/websocket"

	"drumtrack-service/internal/logging"
)

// Hub manages WebSocket connections of operator terminals, keyed by drum.
type Hub struct {
	mu     sync.Mutex
	conns  map[string]map[*websocket.Conn]bool // drumID -> set of connections
	logger *logging.Logger
}

// NewHub constructs an empty Hub.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		conns:  make(map[string]map[*websocket.Conn]bool),
		logger: logger,
	}
}

// Add registers a terminal connection for a drum.
func (h *Hub) Add(drumID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.conns[drumID]; !exists {
		h.conns[drumID] = make(map[*websocket.Conn]bool)
	}
	if len(h.conns[drumID]) >= 10 {
		h.logger.Warnf("Max terminal connections reached for drum %s", drumID)
		return
	}
	h.conns[drumID][conn] = true
	h.logger.Infof("Terminal connected for drum %s (total: %d)", drumID, len(h.conns[drumID]))
}

// Remove unregisters a terminal connection.
func (h *Hub) Remove(drumID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, exists := h.conns[drumID]; exists {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.conns, drumID)
		}
		h.logger.Infof("Terminal disconnected for drum %s (remaining: %d)", drumID, len(conns))
	}
}

// Broadcast sends a JSON payload to every terminal watching a drum.
// Connections that fail to write are dropped.
func (h *Hub) Broadcast(drumID string, payload interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, exists := h.conns[drumID]
	if !exists {
		return
	}
	for conn := range conns {
		if err := conn.WriteJSON(payload); err != nil {
			h.logger.Errorf("Failed to push to terminal on drum %s: %v", drumID, err)
			conn.Close()
			delete(conns, conn)
		}
	}
	if len(conns) == 0 {
		delete(h.conns, drumID)
	}
}
