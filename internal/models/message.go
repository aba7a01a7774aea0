package models

import "time"

// Role distinguishes citizen connections from administrative staff.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Message is one durable chat unit. Sender and receiver are participant
// identifiers (NIC or admin id), never connection ids — messages outlive
// sockets.
type Message struct {
	ID            string    `json:"message_id"`
	SenderID      string    `json:"sender_id"`
	ReceiverID    string    `json:"receiver_id"`
	AppointmentID string    `json:"appointment_id,omitempty"`
	ServiceID     string    `json:"service_id,omitempty"`
	Content       string    `json:"content"`
	Timestamp     time.Time `json:"timestamp"`
	IsRead        bool      `json:"is_read"`
}

// Participant is a durable identity from the user directory, independent of
// any particular socket.
type Participant struct {
	ID        string    `json:"participant_id"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
