package handlers

import (
	"net/http"

	"govchat/internal/config"
	"govchat/internal/identity"
	ws "govchat/internal/websocket"
	"govchat/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WebSocketHandlers upgrades sockets into registered chat connections and
// serves the observability snapshots.
type WebSocketHandlers struct {
	registry *ws.Registry
	rooms    *ws.RoomManager
	router   *ws.EventRouter
	cfg      *config.Config
	upgrader websocket.Upgrader
}

func NewWebSocketHandlers(registry *ws.Registry, rooms *ws.RoomManager, router *ws.EventRouter, cfg *config.Config) *WebSocketHandlers {
	return &WebSocketHandlers{
		registry: registry,
		rooms:    rooms,
		router:   router,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Configure for production
		},
	}
}

// HandleWebSocket handles GET /ws: resolves the caller identity, upgrades
// the transport, and starts the connection's pumps.
func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	caller, err := identity.FromRequest(r)
	if err != nil {
		http.Error(w, "missing or invalid identity", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	connection := ws.NewConnection(uuid.NewString(), caller.ParticipantID, caller.Role, h.cfg.Chat.SendBuffer)
	if err := h.router.HandleConnect(connection); err != nil {
		logger.Error("Error registering connection: %v", err)
		conn.Close()
		return
	}

	client := ws.NewClient(conn, connection, h.router, h.cfg.Chat.PongTimeout, h.cfg.Chat.WriteTimeout)
	go client.WritePump()
	go client.ReadPump()
}

// GetConnections handles GET /websocket/connections.
func (h *WebSocketHandlers) GetConnections(w http.ResponseWriter, r *http.Request) {
	connections := h.registry.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":             "success",
		"active_connections": len(connections),
		"connections":        connections,
	})
}

// GetRooms handles GET /websocket/rooms.
func (h *WebSocketHandlers) GetRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"rooms":  h.rooms.Snapshot(),
	})
}
