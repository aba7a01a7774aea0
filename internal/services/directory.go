package services

import (
	"context"
	"fmt"

	"govchat/internal/database"
	"govchat/internal/models"
)

// DirectoryService backs the admin-facing chat roster. The user directory
// itself is an external collaborator; this service only filters its listing
// down to citizen accounts.
type DirectoryService struct {
	directory database.ParticipantDirectory
}

func NewDirectoryService(directory database.ParticipantDirectory) *DirectoryService {
	return &DirectoryService{directory: directory}
}

// ListChatUsers returns every non-admin participant.
func (s *DirectoryService) ListChatUsers(ctx context.Context) ([]*models.Participant, error) {
	participants, err := s.directory.ListParticipants(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	users := make([]*models.Participant, 0, len(participants))
	for _, p := range participants {
		if p.Role == models.RoleAdmin || models.IsAdminParticipant(p.ID) {
			continue
		}
		users = append(users, p)
	}
	return users, nil
}
