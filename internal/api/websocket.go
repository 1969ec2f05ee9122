package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// ──────────────────── WebSocket Hub ────────────────────

// WSHub fans marker events out to connected editor sessions: markers:update
// after a committed shift or edit, purge:found from the nightly scan,
// shift:progress from background bulk jobs.
type WSHub struct {
	mu      sync.RWMutex
	clients map[*WSClient]bool
}

type WSClient struct {
	conn *websocket.Conn
	send chan []byte
}

type WSMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

func NewWSHub() *WSHub {
	return &WSHub{clients: make(map[*WSClient]bool)}
}

func (h *WSHub) Broadcast(event string, data interface{}) {
	msg, err := json.Marshal(WSMessage{Event: event, Data: data})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
		}
	}
}

func (h *WSHub) addClient(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *WSHub) removeClient(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ──────────────────── WebSocket Handler ────────────────────

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on WebSocket upgrades; token arrives as a
	// query param.
	token := r.URL.Query().Get("token")
	if token == "" {
		s.respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := s.auth.ValidateToken(token)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	if _, err := s.sessionRepo.Get(r.Context(), claims.ID); err != nil {
		s.respondError(w, http.StatusUnauthorized, "session revoked")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // same-origin enforcement happens at the proxy
	})
	if err != nil {
		log.Printf("[ws] accept failed: %v", err)
		return
	}

	client := &WSClient{conn: conn, send: make(chan []byte, 16)}
	s.wsHub.addClient(client)
	defer s.wsHub.removeClient(client)

	ctx := r.Context()
	go func() {
		// Drain reads so pings and close frames are processed.
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for msg := range client.send {
		writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := conn.Write(writeCtx, websocket.MessageText, msg)
		cancel()
		if err != nil {
			break
		}
	}
	conn.Close(websocket.StatusNormalClosure, "")
}
