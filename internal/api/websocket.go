package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"nhooyr.io/websocket"
)

// ──────────────────── WebSocket Hub ────────────────────

// WSHub fans playback-session events out to connected clients. The latest
// state of each live session is kept so a newly connected client sees
// what is currently playing.
type WSHub struct {
	mu             sync.RWMutex
	clients        map[*WSClient]bool
	activeSessions map[string]json.RawMessage // session_id → last session:update payload
	sessionsMu     sync.RWMutex
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
	return &WSHub{
		clients:        make(map[*WSClient]bool),
		activeSessions: make(map[string]json.RawMessage),
	}
}

func (h *WSHub) Broadcast(event string, data interface{}) {
	msg, err := json.Marshal(WSMessage{Event: event, Data: data})
	if err != nil {
		return
	}

	if event == "session:update" {
		h.trackSession(data, msg)
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

// trackSession keeps a snapshot of each live session so new clients get
// current state; terminal states drop the entry.
func (h *WSHub) trackSession(data interface{}, raw []byte) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	var evt struct {
		SessionID string `json:"session_id"`
		State     string `json:"state"`
	}
	if err := json.Unmarshal(payload, &evt); err != nil || evt.SessionID == "" {
		return
	}

	h.sessionsMu.Lock()
	defer h.sessionsMu.Unlock()
	if evt.State == "stopped" || evt.State == "exited" {
		delete(h.activeSessions, evt.SessionID)
	} else {
		h.activeSessions[evt.SessionID] = json.RawMessage(raw)
	}
}

// sendActiveSessions replays live session state to a new client.
func (h *WSHub) sendActiveSessions(client *WSClient) {
	h.sessionsMu.RLock()
	defer h.sessionsMu.RUnlock()
	for _, msg := range h.activeSessions {
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
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("WebSocket accept error: %v", err)
		return
	}

	client := &WSClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	s.wsHub.addClient(client)
	s.wsHub.sendActiveSessions(client)

	ctx := r.Context()

	// Writer goroutine
	go func() {
		defer conn.Close(websocket.StatusNormalClosure, "")
		for msg := range client.send {
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	// Reader loop keeps the connection alive and handles pings.
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}

	s.wsHub.removeClient(client)
}
