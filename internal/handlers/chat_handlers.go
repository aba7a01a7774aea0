package handlers

import (
	"encoding/json"
	"net/http"

	"govchat/internal/database"
	"govchat/internal/models"
	"govchat/internal/services"
	"govchat/pkg/logger"

	"github.com/go-chi/chi/v5"
)

// ChatHandlers exposes the read side of the message log over REST: history,
// read receipts, and the admin roster.
type ChatHandlers struct {
	store     database.Store
	directory *services.DirectoryService
}

func NewChatHandlers(store database.Store, directory *services.DirectoryService) *ChatHandlers {
	return &ChatHandlers{
		store:     store,
		directory: directory,
	}
}

// GetHistory handles GET /chat/history/{participant}?direction=...
func (h *ChatHandlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	participantID := chi.URLParam(r, "participant")
	if participantID == "" {
		http.Error(w, "missing participant", http.StatusBadRequest)
		return
	}

	direction, err := database.ParseDirection(r.URL.Query().Get("direction"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	messages, err := h.store.History(r.Context(), participantID, direction)
	if err != nil {
		logger.Error("History query error for %s: %v", participantID, err)
		http.Error(w, "error loading history", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}

	writeJSON(w, http.StatusOK, messages)
}

// MarkAsRead handles PUT /chat/read/{reader} with {"sender_id": ...}.
func (h *ChatHandlers) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	readerID := chi.URLParam(r, "reader")

	var req struct {
		SenderID string `json:"sender_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SenderID == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	updated, err := h.store.MarkRead(r.Context(), readerID, req.SenderID)
	if err != nil {
		logger.Error("Mark-read error for reader %s: %v", readerID, err)
		http.Error(w, "error marking messages read", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "Messages marked as read successfully",
		"updated_count": updated,
	})
}

// GetChatUsers handles GET /chat/users for the admin roster.
func (h *ChatHandlers) GetChatUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.directory.ListChatUsers(r.Context())
	if err != nil {
		logger.Error("Chat users listing error: %v", err)
		http.Error(w, "error listing users", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
