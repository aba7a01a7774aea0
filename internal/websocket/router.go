package websocket

import (
	"context"
	"encoding/json"
	"time"

	"govchat/internal/database"
	"govchat/internal/models"
	"govchat/pkg/logger"

	"github.com/google/uuid"
)

// previewLimit caps the content excerpt carried by dashboard notifications.
const previewLimit = 80

// EventRouter is the protocol state machine: it validates inbound events
// per connection and dispatches them to the room manager, the message
// store, and the presence tracker.
//
// Validation policy per event: membership and typing events with missing
// fields are silently ignored, because clients routinely emit them with
// partial state during reconnect churn. Only send_message surfaces an
// explicit message_error, since it is the one event with a durability
// expectation.
type EventRouter struct {
	registry  *Registry
	rooms     *RoomManager
	presence  *PresenceTracker
	store     database.MessageStore
	adminRoom string
}

func NewEventRouter(registry *Registry, rooms *RoomManager, presence *PresenceTracker, store database.MessageStore, adminRoom string) *EventRouter {
	if adminRoom == "" {
		adminRoom = "admin_dashboard"
	}
	return &EventRouter{
		registry:  registry,
		rooms:     rooms,
		presence:  presence,
		store:     store,
		adminRoom: adminRoom,
	}
}

// HandleConnect registers a freshly accepted connection.
func (r *EventRouter) HandleConnect(conn *Connection) error {
	if err := r.registry.Register(conn); err != nil {
		return err
	}
	logger.Info("Connection %s opened for participant %s (%s)", conn.ID, conn.ParticipantID, conn.Role)
	return nil
}

// HandleDisconnect runs the leave-all cleanup for a closed socket. It is
// idempotent: a second invocation finds no registered connection and does
// nothing.
func (r *EventRouter) HandleDisconnect(conn *Connection) {
	r.presence.ClearParticipant(conn.Rooms(), conn.ParticipantID)
	r.rooms.DisconnectCleanup(conn.ID)
	logger.Info("Connection %s closed for participant %s", conn.ID, conn.ParticipantID)
}

// HandleEvent dispatches one inbound frame. Unknown events are logged and
// dropped.
func (r *EventRouter) HandleEvent(ctx context.Context, conn *Connection, raw []byte) {
	var envelope models.Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		logger.Debug("Connection %s sent an unparseable frame: %v", conn.ID, err)
		return
	}

	switch envelope.Event {
	case models.EventJoinRoom:
		r.handleJoinRoom(conn, envelope.Data)
	case models.EventLeaveRoom:
		r.handleLeaveRoom(conn, envelope.Data)
	case models.EventSendMessage:
		r.handleSendMessage(ctx, conn, envelope.Data)
	case models.EventTyping:
		r.handleTyping(conn, envelope.Data)
	case models.EventMarkRead:
		r.handleMarkRead(ctx, conn, envelope.Data)
	case models.EventGetOnlineUsers:
		r.handleGetOnlineUsers(conn, envelope.Data)
	default:
		logger.Debug("Connection %s sent unknown event %q", conn.ID, envelope.Event)
	}
}

func (r *EventRouter) handleJoinRoom(conn *Connection, data json.RawMessage) {
	var payload models.JoinRoomPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Room == "" {
		return
	}
	r.rooms.Join(conn.ID, payload.Room, payload.UserType)
}

func (r *EventRouter) handleLeaveRoom(conn *Connection, data json.RawMessage) {
	var payload models.LeaveRoomPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Room == "" {
		return
	}
	r.rooms.Leave(conn.ID, payload.Room)
}

// handleSendMessage persists the message and fans it out to the room. A
// store failure is tolerated: the message still reaches connected peers
// under a temporary id, trading durability for availability.
func (r *EventRouter) handleSendMessage(ctx context.Context, conn *Connection, data json.RawMessage) {
	var payload models.SendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		r.sendError(conn, "", "malformed send_message payload")
		return
	}
	if payload.Room == "" || payload.SenderID == "" || payload.ReceiverID == "" || payload.Content == "" {
		r.sendError(conn, payload.Room, "send_message requires room, sender_id, receiver_id, and content")
		return
	}

	// The store call happens without any room or registry lock held, so a
	// slow write never stalls unrelated broadcasts.
	msg, err := r.store.SaveMessage(ctx, payload.SenderID, payload.ReceiverID, payload.AppointmentID, payload.ServiceID, payload.Content)
	if err != nil {
		logger.Error("Failed to persist message from %s: %v; delivering with temporary id", payload.SenderID, err)
		msg = &models.Message{
			ID:            "tmp-" + uuid.NewString(),
			SenderID:      payload.SenderID,
			ReceiverID:    payload.ReceiverID,
			AppointmentID: payload.AppointmentID,
			ServiceID:     payload.ServiceID,
			Content:       payload.Content,
			Timestamp:     time.Now(),
		}
	}

	r.rooms.Broadcast(payload.Room, models.EventReceiveMessage, msg, conn.ID)

	// Citizen messages additionally raise a dashboard notification so staff
	// not watching this conversation still see it arrive.
	if !models.IsAdminParticipant(payload.SenderID) {
		r.rooms.Broadcast(r.adminRoom, models.EventNewUserMessage, models.NewUserMessagePayload{
			Room:     payload.Room,
			SenderID: payload.SenderID,
			Preview:  truncate(payload.Content, previewLimit),
		}, conn.ID)
	}
}

func (r *EventRouter) handleTyping(conn *Connection, data json.RawMessage) {
	var payload models.TypingPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Room == "" || payload.UserID == "" {
		return
	}
	r.presence.SetTyping(payload.Room, payload.UserID, payload.IsTyping, conn.ID)
}

func (r *EventRouter) handleMarkRead(ctx context.Context, conn *Connection, data json.RawMessage) {
	var payload models.MarkReadPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Room == "" || payload.UserID == "" || payload.SenderID == "" {
		return
	}

	updated, err := r.store.MarkRead(ctx, payload.UserID, payload.SenderID)
	if err != nil {
		logger.Error("Failed to mark messages read for %s: %v", payload.UserID, err)
		return
	}

	r.rooms.Broadcast(payload.Room, models.EventMessagesRead, models.MessagesReadPayload{
		Room:     payload.Room,
		ReaderID: payload.UserID,
		Updated:  updated,
	}, conn.ID)
}

// handleGetOnlineUsers replies to the requesting connection only.
func (r *EventRouter) handleGetOnlineUsers(conn *Connection, data json.RawMessage) {
	var payload models.GetOnlineUsersPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Room == "" {
		return
	}

	reply, err := marshalEnvelope(models.EventOnlineUsers, models.OnlineUsersPayload{
		Room:  payload.Room,
		Users: r.presence.OnlineUsers(payload.Room),
	})
	if err != nil {
		logger.Error("Error marshaling online_users reply: %v", err)
		return
	}
	conn.TrySend(reply)
}

func (r *EventRouter) sendError(conn *Connection, room, reason string) {
	reply, err := marshalEnvelope(models.EventMessageError, models.MessageErrorPayload{
		Room:   room,
		Reason: reason,
	})
	if err != nil {
		logger.Error("Error marshaling message_error reply: %v", err)
		return
	}
	conn.TrySend(reply)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
