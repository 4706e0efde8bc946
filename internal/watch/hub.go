// Package watch streams decided rounds to spectators over WebSocket.
package watch

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/cellwar/internal/metrics"
)

// Event types sent over WebSocket.
const (
	EventConnected    = "connected"
	EventMatchStarted = "match_started"
	EventRound        = "round"
	EventMatchEnded   = "match_ended"
)

// Event is the envelope for all WebSocket messages.
type Event struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id"`
	Data    any    `json:"data"`
}

// ClientMessage is the envelope for messages sent from the client.
type ClientMessage struct {
	Action  string `json:"action"` // "subscribe" or "unsubscribe"
	MatchID string `json:"match_id"`
}

// Conn wraps a WebSocket connection with its spectator and send queue.
type Conn struct {
	conn      *websocket.Conn
	spectator string
	send      chan []byte
}

// Hub manages spectator connections and match subscriptions.
type Hub struct {
	mu          sync.RWMutex
	connections map[*Conn]bool
	matches     map[string]map[*Conn]bool // matchID -> set of connections
	metrics     *metrics.Collector
}

// NewHub creates a Hub. Dropped messages are counted on mc, which may be nil.
func NewHub(mc *metrics.Collector) *Hub {
	return &Hub{
		connections: make(map[*Conn]bool),
		matches:     make(map[string]map[*Conn]bool),
		metrics:     mc,
	}
}

// Register adds a connection to the hub.
func (h *Hub) Register(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = true
}

// Unregister removes a connection and all its subscriptions, then closes its
// send queue. Unregistering twice is a no-op.
func (h *Hub) Unregister(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.connections[c] {
		return
	}
	delete(h.connections, c)
	for matchID, conns := range h.matches {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.matches, matchID)
		}
	}
	close(c.send)
}

// Subscribe adds a connection to a match channel.
func (h *Hub) Subscribe(c *Conn, matchID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.connections[c] {
		return
	}
	if h.matches[matchID] == nil {
		h.matches[matchID] = make(map[*Conn]bool)
	}
	h.matches[matchID][c] = true
}

// Unsubscribe removes a connection from a match channel.
func (h *Hub) Unsubscribe(c *Conn, matchID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.matches[matchID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.matches, matchID)
		}
	}
}

// Publish sends an event to every connection subscribed to its match. It never
// blocks: a spectator whose queue is full misses the event.
func (h *Hub) Publish(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("matchId", event.MatchID).Msg("Failed to marshal watch event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.matches[event.MatchID] {
		select {
		case c.send <- data:
		default:
			h.metrics.Drop("watch")
			log.Warn().Str("spectator", c.spectator).Str("matchId", event.MatchID).Msg("Dropping watch event, buffer full")
		}
	}
}

// CloseAll unregisters every connection, which makes their write pumps send a
// close frame.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.connections))
	for c := range h.connections {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		h.Unregister(c)
	}
}

// ConnectionCount returns the total number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// MatchSubscriberCount returns the number of connections subscribed to a match.
func (h *Hub) MatchSubscriberCount(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.matches[matchID])
}
