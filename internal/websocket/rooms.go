package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"govchat/internal/models"
	"govchat/pkg/logger"
)

// RoomManager implements join/leave and room-scoped fan-out on top of the
// registry. Rooms are created on first join and reaped once empty; nothing
// here is persisted.
//
// Invariant: a room's member set is exactly the registered connections that
// joined it most recently without an intervening leave or disconnect.
type RoomManager struct {
	registry *Registry

	mu    sync.Mutex
	rooms map[string]map[string]struct{} // room name -> connection ids

	bridge *Bridge
}

func NewRoomManager(registry *Registry) *RoomManager {
	return &RoomManager{
		registry: registry,
		rooms:    make(map[string]map[string]struct{}),
	}
}

// SetBridge attaches the optional cross-instance broadcast bridge.
func (m *RoomManager) SetBridge(bridge *Bridge) {
	m.bridge = bridge
}

// Join adds the connection to the room and notifies the existing members.
// Unknown connection ids are a no-op: the socket may have disconnected
// between the inbound event and this call. Re-joining emits a fresh
// user_joined but leaves membership unchanged.
func (m *RoomManager) Join(connectionID, room, userType string) {
	conn, ok := m.registry.Lookup(connectionID)
	if !ok {
		return
	}

	m.mu.Lock()
	members, exists := m.rooms[room]
	if !exists {
		members = make(map[string]struct{})
		m.rooms[room] = members
	}
	members[connectionID] = struct{}{}
	m.mu.Unlock()

	conn.addRoom(room)

	if userType == "" {
		userType = string(conn.Role)
	}
	m.Broadcast(room, models.EventUserJoined, models.UserJoinedPayload{
		Room:     room,
		UserType: userType,
	}, connectionID)

	logger.Debug("Connection %s (%s) joined room %s", connectionID, conn.ParticipantID, room)
}

// Leave removes the membership, tells the remaining members, and reaps the
// room once empty. Safe to call for connections already gone from the
// registry.
func (m *RoomManager) Leave(connectionID, room string) {
	m.mu.Lock()
	members, exists := m.rooms[room]
	if exists {
		delete(members, connectionID)
		if len(members) == 0 {
			delete(m.rooms, room)
		}
	}
	m.mu.Unlock()

	if !exists {
		return
	}

	if conn, ok := m.registry.Lookup(connectionID); ok {
		conn.removeRoom(room)
	}

	m.Broadcast(room, models.EventUserLeft, models.UserLeftPayload{Room: room}, connectionID)
}

// Broadcast delivers an event to every member of the room except the
// excluded connection and returns the delivered count. Delivery is
// best-effort per recipient: a failed queue write marks that connection for
// cleanup and never aborts delivery to the rest.
func (m *RoomManager) Broadcast(room string, event models.EventType, data interface{}, excludeConnectionID string) int {
	payload, err := marshalEnvelope(event, data)
	if err != nil {
		logger.Error("Error marshaling %s event for room %s: %v", event, room, err)
		return 0
	}

	delivered := m.deliver(room, payload, excludeConnectionID)

	if m.bridge != nil {
		m.bridge.Publish(context.Background(), room, payload)
	}
	return delivered
}

// deliver fans a marshaled envelope out to the local members of a room.
func (m *RoomManager) deliver(room string, payload []byte, excludeConnectionID string) int {
	m.mu.Lock()
	members, exists := m.rooms[room]
	if !exists {
		m.mu.Unlock()
		return 0
	}
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var delivered int
	var failed []string
	for _, id := range ids {
		if id == excludeConnectionID {
			continue
		}
		conn, ok := m.registry.Lookup(id)
		if !ok {
			// Lost a disconnect race; membership cleanup is already
			// underway on another goroutine.
			continue
		}
		if conn.TrySend(payload) {
			delivered++
		} else {
			failed = append(failed, id)
		}
	}

	for _, id := range failed {
		logger.Warn("Dropping connection %s: outbound queue full or closed", id)
		m.DisconnectCleanup(id)
	}
	return delivered
}

// DisconnectCleanup models a disconnect as an implicit leave-all: the
// connection is unregistered first, then each room it was in gets the
// normal user_left notification. Calling it twice is safe; the second call
// finds nothing to clean.
func (m *RoomManager) DisconnectCleanup(connectionID string) {
	rooms := m.registry.Unregister(connectionID)
	for _, room := range rooms {
		m.Leave(connectionID, room)
	}
}

// Members returns a snapshot of the connection ids in a room.
func (m *RoomManager) Members(room string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	members, exists := m.rooms[room]
	if !exists {
		return nil
	}
	out := make([]string, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}

// Snapshot lists every room and its members for the observability
// endpoints.
func (m *RoomManager) Snapshot() map[string][]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string][]string, len(m.rooms))
	for room, members := range m.rooms {
		ids := make([]string, 0, len(members))
		for id := range members {
			ids = append(ids, id)
		}
		out[room] = ids
	}
	return out
}

func marshalEnvelope(event models.EventType, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(models.Envelope{Event: event, Data: raw})
}
