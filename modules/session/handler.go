package session

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	// the page is served by this server; other origins are allowed for local tooling
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Handler struct {
	manager *Manager
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// RegisterRoutes - websocket, session info, metrics and admin cleanup
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws", h.HandleWebSocket)
	r.HandleFunc("/session/{sessionId}", h.HandleSessionInfo).Methods("GET")
	r.HandleFunc("/session/{sessionId}", h.HandleRemoveSession).Methods("DELETE")
	r.HandleFunc("/metrics", h.HandleMetrics).Methods("GET")
	r.HandleFunc("/admin/cleanup", h.HandleCleanup).Methods("POST")
}

// HandleWebSocket - GET /ws?session=<id>
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	s, ok := h.manager.Get(sessionID)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &Client{
		id:      uuid.New().String(),
		conn:    conn,
		session: s,
		send:    make(chan []byte, 256),
	}

	count := s.addClient(client)
	// current state first, so the page never waits for the next transition
	s.sendSnapshot(client)
	h.manager.countConnection()
	log.Info().Msgf("👤 Client %s joined session %s (Clients: %d)", client.id, s.id, count)

	go client.writePump()
	go client.readPump()
}

// HandleSessionInfo - GET /session/{sessionId}
func (h *Handler) HandleSessionInfo(w http.ResponseWriter, r *http.Request) {
	info, ok := h.manager.Info(mux.Vars(r)["sessionId"])
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "Session not found"})
		return
	}
	json.NewEncoder(w).Encode(info)
}

// HandleRemoveSession - DELETE /session/{sessionId}
func (h *Handler) HandleRemoveSession(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !h.manager.Remove(mux.Vars(r)["sessionId"]) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "Session not found"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "removed"})
}

// HandleMetrics - GET /metrics
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, sessions := h.manager.Snapshot()

	totalClients := 0
	for _, s := range sessions {
		totalClients += s.ClientCount
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"server": map[string]interface{}{
			"uptime":           time.Since(metrics.StartTime).String(),
			"startTime":        metrics.StartTime,
			"totalSessions":    metrics.TotalSessions,
			"activeSessions":   metrics.ActiveSessions,
			"totalConnections": metrics.TotalConnections,
			"currentClients":   totalClients,
		},
		"sessions": sessions,
	})
}

// HandleCleanup - POST /admin/cleanup
func (h *Handler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	cleaned := h.manager.CleanupIdle()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "Cleanup completed",
		"cleaned": cleaned,
	})
}
