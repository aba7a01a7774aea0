package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"govchat/internal/database"
	"govchat/internal/models"
	"govchat/internal/services"

	"github.com/go-chi/chi/v5"
)

func newTestRouter(t *testing.T) (*database.MemoryStore, http.Handler) {
	t.Helper()

	store := database.NewMemoryStore()
	h := NewChatHandlers(store, services.NewDirectoryService(store))

	r := chi.NewRouter()
	r.Get("/chat/history/{participant}", h.GetHistory)
	r.Put("/chat/read/{reader}", h.MarkAsRead)
	r.Get("/chat/users", h.GetChatUsers)
	return store, r
}

func TestGetHistory(t *testing.T) {
	store, router := newTestRouter(t)
	ctx := context.Background()
	store.SaveMessage(ctx, "u1", "admin", "", "", "first")
	store.SaveMessage(ctx, "admin", "u1", "", "", "second")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/chat/history/u1?direction=both", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var messages []*models.Message
	if err := json.NewDecoder(rec.Body).Decode(&messages); err != nil {
		t.Fatal(err)
	}
	if len(messages) != 2 || messages[0].Content != "first" {
		t.Errorf("history = %+v", messages)
	}
}

func TestGetHistoryEmptyIsArray(t *testing.T) {
	_, router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/chat/history/nobody", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("empty history body = %q, want []", body)
	}
}

func TestGetHistoryBadDirection(t *testing.T) {
	_, router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/chat/history/u1?direction=sideways", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMarkAsRead(t *testing.T) {
	store, router := newTestRouter(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		store.SaveMessage(ctx, "s1", "r2", "", "", "msg")
	}

	body := strings.NewReader(`{"sender_id": "s1"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("PUT", "/chat/read/r2", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		UpdatedCount int64 `json:"updated_count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.UpdatedCount != 3 {
		t.Errorf("updated_count = %d, want 3", resp.UpdatedCount)
	}

	// Second call finds nothing unread.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("PUT", "/chat/read/r2", strings.NewReader(`{"sender_id": "s1"}`)))
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.UpdatedCount != 0 {
		t.Errorf("second updated_count = %d, want 0", resp.UpdatedCount)
	}
}

func TestMarkAsReadMissingSender(t *testing.T) {
	_, router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("PUT", "/chat/read/r2", strings.NewReader(`{}`)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// The roster excludes staff accounts, both by role and by the short
// numeric id convention.
func TestGetChatUsersFiltersAdmins(t *testing.T) {
	store, router := newTestRouter(t)
	store.AddParticipant(&models.Participant{ID: "982761234V", Name: "Nimal", Role: models.RoleUser})
	store.AddParticipant(&models.Participant{ID: "admin", Name: "Desk", Role: models.RoleAdmin})
	store.AddParticipant(&models.Participant{ID: "42", Name: "Agent", Role: models.RoleUser})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/chat/users", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var users []*models.Participant
	if err := json.NewDecoder(rec.Body).Decode(&users); err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].ID != "982761234V" {
		t.Errorf("roster = %+v, want only the citizen", users)
	}
}
