package handler

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"guestbook/internal/config"
)

// createUpgrader creates a WebSocket upgrader that accepts the configured
// origins. Requests without an Origin header (non-browser clients) pass.
func createUpgrader(cfg config.Config) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || cfg.OriginAllowed(origin)
		},
	}
}

// HandleWebSocket handles GET /ws
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := createUpgrader(h.Config)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.ClientMu.Lock()
	h.Clients[conn] = true
	totalClients := len(h.Clients)
	h.ClientMu.Unlock()
	h.Metrics.WSClients.Inc()

	log.Printf("New WebSocket connection. Total clients: %d", totalClients)

	// クライアントからのメッセージを受信（キープアライブ用）
	for {
		var msg interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			h.removeClient(conn)
			h.ClientMu.RLock()
			remainingClients := len(h.Clients)
			h.ClientMu.RUnlock()
			log.Printf("[WebSocket] Client disconnected. Total clients: %d", remainingClients)
			break
		}
	}
}

// removeClient forgets conn once; the gauge only moves if it was registered.
func (h *Handler) removeClient(conn *websocket.Conn) {
	h.ClientMu.Lock()
	_, ok := h.Clients[conn]
	delete(h.Clients, conn)
	h.ClientMu.Unlock()
	if ok {
		h.Metrics.WSClients.Dec()
	}
}

// HandleBroadcast pushes board events to all connected WebSocket clients
func (h *Handler) HandleBroadcast() {
	for event := range h.Broadcast {
		// clients マップをスナップショットしてからロックを外すことで、
		// range 中に delete して "concurrent map iteration and map write"
		// が発生するのを防ぐ
		h.ClientMu.RLock()
		clientsSnapshot := make([]*websocket.Conn, 0, len(h.Clients))
		for client := range h.Clients {
			clientsSnapshot = append(clientsSnapshot, client)
		}
		h.ClientMu.RUnlock()

		for _, client := range clientsSnapshot {
			if err := client.WriteJSON(event); err != nil {
				client.Close()
				h.removeClient(client)
			}
		}
		log.Printf("[WebSocket] 📢 Broadcast %s event for message %d to %d clients",
			event.Type, event.ID, len(clientsSnapshot))
	}
}
