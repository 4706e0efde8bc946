package watch

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/cellwar/internal/auth"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = 54 * time.Second // Must be less than pongWait
	maxMsgSize  = 1024
	sendBufSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // spectators authenticate with a token, not cookies
	},
}

// Handler upgrades spectator connections.
type Handler struct {
	hub    *Hub
	jwtMgr *auth.JWTManager
}

// NewHandler creates a Handler.
func NewHandler(hub *Hub, jwtMgr *auth.JWTManager) *Handler {
	return &Handler{hub: hub, jwtMgr: jwtMgr}
}

// Routes returns the watch server's mux: GET /ws and GET /healthz.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", h.ServeWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "connections": h.hub.ConnectionCount()})
	})
	return mux
}

// ServeWS handles GET /ws. A token scoped to one match subscribes to it
// right away.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	tokenStr, err := auth.TokenFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing token")
		return
	}

	claims, err := h.jwtMgr.ValidateToken(tokenStr)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &Conn{
		conn:      conn,
		spectator: claims.Spectator,
		send:      make(chan []byte, sendBufSize),
	}
	welcome, _ := json.Marshal(Event{Type: EventConnected, MatchID: claims.MatchID, Data: map[string]any{}})
	client.send <- welcome

	h.hub.Register(client)
	if claims.MatchID != "" {
		h.hub.Subscribe(client, claims.MatchID)
	}

	go h.writePump(client)
	go h.readPump(client, claims)

	log.Info().Str("spectator", claims.Spectator).Int("total", h.hub.ConnectionCount()).Msg("Spectator connected")
}

// readPump handles subscribe requests until the connection drops.
func (h *Handler) readPump(c *Conn, claims *auth.Claims) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
		log.Info().Str("spectator", c.spectator).Msg("Spectator disconnected")
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("spectator", c.spectator).Msg("WebSocket unexpected close")
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil || msg.MatchID == "" {
			continue
		}
		switch msg.Action {
		case "subscribe":
			if !claims.Allows(msg.MatchID) {
				log.Debug().Str("spectator", c.spectator).Str("matchId", msg.MatchID).Msg("Subscription outside token scope")
				continue
			}
			h.hub.Subscribe(c, msg.MatchID)
		case "unsubscribe":
			h.hub.Unsubscribe(c, msg.MatchID)
		}
	}
}

// writePump writes queued events and keeps the connection alive.
func (h *Handler) writePump(c *Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
