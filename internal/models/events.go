package models

import "encoding/json"

// EventType names one unit on the wire, inbound or outbound.
type EventType string

// Inbound events, emitted by clients.
const (
	EventJoinRoom       EventType = "join_room"
	EventLeaveRoom      EventType = "leave_room"
	EventSendMessage    EventType = "send_message"
	EventTyping         EventType = "typing"
	EventMarkRead       EventType = "mark_read"
	EventGetOnlineUsers EventType = "get_online_users"
)

// Outbound events, emitted by the server.
const (
	EventUserJoined     EventType = "user_joined"
	EventUserLeft       EventType = "user_left"
	EventReceiveMessage EventType = "receive_message"
	EventNewUserMessage EventType = "new_user_message"
	EventUserTyping     EventType = "user_typing"
	EventMessagesRead   EventType = "messages_read"
	EventOnlineUsers    EventType = "online_users"
	EventMessageError   EventType = "message_error"
)

// Envelope is the framed unit exchanged over the socket: a named event with
// a JSON payload. Data stays raw on the inbound path so each handler can
// decode its own payload shape.
type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinRoomPayload is sent by a client to enter a broadcast group.
type JoinRoomPayload struct {
	Room     string `json:"room"`
	UserType string `json:"user_type"`
}

type LeaveRoomPayload struct {
	Room string `json:"room"`
}

// SendMessagePayload carries one chat message addressed to a room plus the
// durable participant identifiers recorded in the store.
type SendMessagePayload struct {
	Room          string `json:"room"`
	SenderID      string `json:"sender_id"`
	ReceiverID    string `json:"receiver_id"`
	AppointmentID string `json:"appointment_id,omitempty"`
	ServiceID     string `json:"service_id,omitempty"`
	Content       string `json:"content"`
}

type TypingPayload struct {
	Room     string `json:"room"`
	UserID   string `json:"user_id"`
	IsTyping bool   `json:"is_typing"`
}

type MarkReadPayload struct {
	Room     string `json:"room"`
	UserID   string `json:"user_id"`
	SenderID string `json:"sender_id"`
}

type GetOnlineUsersPayload struct {
	Room string `json:"room"`
}

// UserJoinedPayload announces a new room member to the existing ones.
type UserJoinedPayload struct {
	Room     string `json:"room"`
	UserType string `json:"user_type"`
}

type UserLeftPayload struct {
	Room string `json:"room"`
}

// NewUserMessagePayload is the dashboard notification fanned out to admins
// when a citizen sends a message. Preview is a truncated copy of the content.
type NewUserMessagePayload struct {
	Room     string `json:"room"`
	SenderID string `json:"sender_id"`
	Preview  string `json:"preview"`
}

type MessagesReadPayload struct {
	Room     string `json:"room"`
	ReaderID string `json:"reader_id"`
	Updated  int64  `json:"updated_count"`
}

// OnlineUser is one entry in an online_users reply.
type OnlineUser struct {
	ConnectionID  string `json:"connection_id"`
	ParticipantID string `json:"participant_id"`
	Role          Role   `json:"role"`
	ConnectedAt   string `json:"connected_at"`
}

type OnlineUsersPayload struct {
	Room  string       `json:"room"`
	Users []OnlineUser `json:"users"`
}

type MessageErrorPayload struct {
	Room   string `json:"room,omitempty"`
	Reason string `json:"reason"`
}
