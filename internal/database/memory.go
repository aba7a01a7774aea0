package database

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"govchat/internal/models"
)

// MemoryStore is a process-local Store used in tests and as the fallback
// when no database is configured. Messages are lost on restart; everything
// else behaves like the durable implementation.
type MemoryStore struct {
	mu           sync.Mutex
	nextID       int64
	lastStamp    time.Time
	messages     []*models.Message
	participants map[string]*models.Participant
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:       1,
		participants: make(map[string]*models.Participant),
	}
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) SaveMessage(ctx context.Context, senderID, receiverID, appointmentID, serviceID, content string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Timestamps must be non-decreasing even if the wall clock steps back.
	stamp := time.Now()
	if stamp.Before(s.lastStamp) {
		stamp = s.lastStamp
	}
	s.lastStamp = stamp

	msg := &models.Message{
		ID:            strconv.FormatInt(s.nextID, 10),
		SenderID:      senderID,
		ReceiverID:    receiverID,
		AppointmentID: appointmentID,
		ServiceID:     serviceID,
		Content:       content,
		Timestamp:     stamp,
	}
	s.nextID++
	s.messages = append(s.messages, msg)

	copied := *msg
	return &copied, nil
}

func (s *MemoryStore) History(ctx context.Context, participantID string, direction Direction) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Message
	for _, msg := range s.messages {
		var match bool
		switch direction {
		case DirectionInbound:
			match = msg.SenderID == participantID && models.IsAdminParticipant(msg.ReceiverID)
		case DirectionOutbound:
			match = msg.ReceiverID == participantID && models.IsAdminParticipant(msg.SenderID)
		case DirectionBoth:
			match = msg.SenderID == participantID || msg.ReceiverID == participantID
		}
		if match {
			copied := *msg
			out = append(out, &copied)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (s *MemoryStore) MarkRead(ctx context.Context, readerID, senderID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated int64
	for _, msg := range s.messages {
		if msg.SenderID == senderID && msg.ReceiverID == readerID && !msg.IsRead {
			msg.IsRead = true
			updated++
		}
	}
	return updated, nil
}

func (s *MemoryStore) ListParticipants(ctx context.Context) ([]*models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		copied := *p
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// AddParticipant seeds a directory entry.
func (s *MemoryStore) AddParticipant(p *models.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *p
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now()
	}
	s.participants[copied.ID] = &copied
}
