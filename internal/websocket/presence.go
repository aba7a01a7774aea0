package websocket

import (
	"sync"
	"time"

	"govchat/internal/models"
)

// PresenceTracker derives online-user lists from the registry and room
// membership and keeps the transient typing flags. Online state is never
// stored independently, so it clears on disconnect by construction; only
// the typing flags need explicit cleanup.
type PresenceTracker struct {
	registry *Registry
	rooms    *RoomManager

	mu     sync.Mutex
	typing map[string]map[string]bool // room name -> participant id -> is typing
}

func NewPresenceTracker(registry *Registry, rooms *RoomManager) *PresenceTracker {
	return &PresenceTracker{
		registry: registry,
		rooms:    rooms,
		typing:   make(map[string]map[string]bool),
	}
}

// SetTyping overwrites the participant's typing flag for the room and fans
// the change out to the other members.
func (t *PresenceTracker) SetTyping(room, participantID string, isTyping bool, excludeConnectionID string) {
	t.mu.Lock()
	flags, exists := t.typing[room]
	if !exists {
		flags = make(map[string]bool)
		t.typing[room] = flags
	}
	flags[participantID] = isTyping
	t.mu.Unlock()

	t.rooms.Broadcast(room, models.EventUserTyping, models.TypingPayload{
		Room:     room,
		UserID:   participantID,
		IsTyping: isTyping,
	}, excludeConnectionID)
}

// Typing reports the last-known typing flag for a participant in a room.
func (t *PresenceTracker) Typing(room, participantID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.typing[room][participantID]
}

// ClearParticipant drops the typing flags a departing participant left
// behind in the given rooms.
func (t *PresenceTracker) ClearParticipant(rooms []string, participantID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, room := range rooms {
		flags, exists := t.typing[room]
		if !exists {
			continue
		}
		delete(flags, participantID)
		if len(flags) == 0 {
			delete(t.typing, room)
		}
	}
}

// OnlineUsers snapshots the connections currently in a room.
func (t *PresenceTracker) OnlineUsers(room string) []models.OnlineUser {
	ids := t.rooms.Members(room)

	out := make([]models.OnlineUser, 0, len(ids))
	for _, id := range ids {
		conn, ok := t.registry.Lookup(id)
		if !ok {
			continue
		}
		out = append(out, models.OnlineUser{
			ConnectionID:  conn.ID,
			ParticipantID: conn.ParticipantID,
			Role:          conn.Role,
			ConnectedAt:   conn.ConnectedAt.Format(time.RFC3339),
		})
	}
	return out
}
