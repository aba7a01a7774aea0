package database

import (
	"context"
	"errors"
	"fmt"

	"govchat/internal/models"
)

// Direction filters a history query relative to the participant acting as
// the non-admin party.
type Direction string

const (
	// DirectionInbound selects messages the participant sent to staff.
	DirectionInbound Direction = "inbound"
	// DirectionOutbound selects messages staff sent to the participant.
	DirectionOutbound Direction = "outbound"
	// DirectionBoth selects every message the participant sent or received.
	DirectionBoth Direction = "both"
)

// ParseDirection validates a direction query value.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionInbound, DirectionOutbound, DirectionBoth:
		return Direction(s), nil
	case "":
		return DirectionBoth, nil
	}
	return "", fmt.Errorf("invalid direction %q", s)
}

// ErrNotFound is returned for lookups of rows that do not exist.
var ErrNotFound = errors.New("not found")

// MessageStore owns message persistence. SaveMessage assigns the id,
// timestamp, and unread state; no other component mutates a stored message.
type MessageStore interface {
	// SaveMessage appends one message atomically: the returned message is
	// fully persisted, or the error describes why nothing was written.
	SaveMessage(ctx context.Context, senderID, receiverID, appointmentID, serviceID, content string) (*models.Message, error)
	// History returns the participant's messages filtered by direction,
	// ordered by timestamp ascending.
	History(ctx context.Context, participantID string, direction Direction) ([]*models.Message, error)
	// MarkRead flips every unread message from senderID to readerID to
	// read and reports how many rows changed. Re-invoking on an
	// already-read set returns 0.
	MarkRead(ctx context.Context, readerID, senderID string) (int64, error)
}

// ParticipantDirectory lists durable identities for the admin roster.
type ParticipantDirectory interface {
	ListParticipants(ctx context.Context) ([]*models.Participant, error)
}

type Store interface {
	MessageStore
	ParticipantDirectory
	Close() error
}
