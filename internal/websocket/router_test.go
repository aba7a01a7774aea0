package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"govchat/internal/database"
	"govchat/internal/models"
)

type routerFixture struct {
	registry *Registry
	rooms    *RoomManager
	presence *PresenceTracker
	store    *database.MemoryStore
	router   *EventRouter
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	registry := NewRegistry()
	rooms := NewRoomManager(registry)
	presence := NewPresenceTracker(registry, rooms)
	store := database.NewMemoryStore()
	return &routerFixture{
		registry: registry,
		rooms:    rooms,
		presence: presence,
		store:    store,
		router:   NewEventRouter(registry, rooms, presence, store, "admin_dashboard"),
	}
}

func (f *routerFixture) connect(t *testing.T, id, participant string, role models.Role) *Connection {
	t.Helper()
	conn := newTestConnection(id, participant, role)
	if err := f.router.HandleConnect(conn); err != nil {
		t.Fatalf("HandleConnect %s: %v", id, err)
	}
	return conn
}

// failingStore simulates an unavailable message store.
type failingStore struct{}

func (failingStore) SaveMessage(ctx context.Context, senderID, receiverID, appointmentID, serviceID, content string) (*models.Message, error) {
	return nil, errors.New("store unavailable")
}

func (failingStore) History(ctx context.Context, participantID string, direction database.Direction) ([]*models.Message, error) {
	return nil, errors.New("store unavailable")
}

func (failingStore) MarkRead(ctx context.Context, readerID, senderID string) (int64, error) {
	return 0, errors.New("store unavailable")
}

func TestHandleConnectDuplicate(t *testing.T) {
	f := newRouterFixture(t)
	f.connect(t, "c1", "u1", models.RoleUser)

	err := f.router.HandleConnect(newTestConnection("c1", "u2", models.RoleUser))
	if !errors.Is(err, ErrDuplicateConnection) {
		t.Errorf("duplicate HandleConnect returned %v", err)
	}
}

// TestSendAndReceive is the canonical round trip: A and B share a room, A
// sends, B receives the message, A does not get its own message back.
func TestSendAndReceive(t *testing.T) {
	f := newRouterFixture(t)
	a := f.connect(t, "a", "u1", models.RoleUser)
	b := f.connect(t, "b", "u2", models.RoleUser)
	f.router.HandleEvent(context.Background(), a, inboundFrame(t, models.EventJoinRoom, models.JoinRoomPayload{Room: "r1", UserType: "user"}))
	f.router.HandleEvent(context.Background(), b, inboundFrame(t, models.EventJoinRoom, models.JoinRoomPayload{Room: "r1", UserType: "user"}))
	drain(a)
	drain(b)

	f.router.HandleEvent(context.Background(), a, inboundFrame(t, models.EventSendMessage, models.SendMessagePayload{
		Room:       "r1",
		SenderID:   "u1",
		ReceiverID: "u2",
		Content:    "hello",
	}))

	envelope := receiveEnvelope(t, b)
	if envelope.Event != models.EventReceiveMessage {
		t.Fatalf("b received %s, want receive_message", envelope.Event)
	}
	var msg models.Message
	if err := json.Unmarshal(envelope.Data, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Content != "hello" || msg.SenderID != "u1" || msg.ReceiverID != "u2" {
		t.Errorf("delivered message = %+v", msg)
	}
	if msg.IsRead {
		t.Error("freshly delivered message already marked read")
	}
	expectNoEnvelope(t, a)

	// The message was durably appended as well.
	history, err := f.store.History(context.Background(), "u1", database.DirectionBoth)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Content != "hello" {
		t.Errorf("history after send = %+v", history)
	}
}

// A citizen message also raises a dashboard notification with a truncated
// preview for staff not watching the conversation.
func TestAdminNotificationRouting(t *testing.T) {
	f := newRouterFixture(t)
	a := f.connect(t, "a", "u1", models.RoleUser)
	staff := f.connect(t, "staff", "admin", models.RoleAdmin)
	f.router.HandleEvent(context.Background(), a, inboundFrame(t, models.EventJoinRoom, models.JoinRoomPayload{Room: "u1_1", UserType: "user"}))
	f.router.HandleEvent(context.Background(), staff, inboundFrame(t, models.EventJoinRoom, models.JoinRoomPayload{Room: "admin_dashboard", UserType: "admin"}))
	drain(a)
	drain(staff)

	long := strings.Repeat("x", 200)
	f.router.HandleEvent(context.Background(), a, inboundFrame(t, models.EventSendMessage, models.SendMessagePayload{
		Room:       "u1_1",
		SenderID:   "u1",
		ReceiverID: "admin",
		Content:    long,
	}))

	envelope := receiveEnvelope(t, staff)
	if envelope.Event != models.EventNewUserMessage {
		t.Fatalf("staff received %s, want new_user_message", envelope.Event)
	}
	var payload models.NewUserMessagePayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.SenderID != "u1" || payload.Room != "u1_1" {
		t.Errorf("notification payload = %+v", payload)
	}
	if len([]rune(payload.Preview)) >= len([]rune(long)) {
		t.Errorf("preview not truncated: %d runes", len([]rune(payload.Preview)))
	}
}

// Messages from staff do not raise dashboard notifications.
func TestAdminSenderSkipsNotification(t *testing.T) {
	f := newRouterFixture(t)
	staffChat := f.connect(t, "sc", "admin", models.RoleAdmin)
	dashboard := f.connect(t, "dash", "42", models.RoleAdmin)
	f.router.HandleEvent(context.Background(), staffChat, inboundFrame(t, models.EventJoinRoom, models.JoinRoomPayload{Room: "u1_1", UserType: "admin"}))
	f.router.HandleEvent(context.Background(), dashboard, inboundFrame(t, models.EventJoinRoom, models.JoinRoomPayload{Room: "admin_dashboard", UserType: "admin"}))
	drain(staffChat)
	drain(dashboard)

	f.router.HandleEvent(context.Background(), staffChat, inboundFrame(t, models.EventSendMessage, models.SendMessagePayload{
		Room:       "u1_1",
		SenderID:   "admin",
		ReceiverID: "u1",
		Content:    "your documents were approved",
	}))

	expectNoEnvelope(t, dashboard)
}

// TestSendMessageSurvivesStoreFailure pins the availability trade-off: a
// failed durable write still delivers in real time under a temporary id.
func TestSendMessageSurvivesStoreFailure(t *testing.T) {
	registry := NewRegistry()
	rooms := NewRoomManager(registry)
	presence := NewPresenceTracker(registry, rooms)
	router := NewEventRouter(registry, rooms, presence, failingStore{}, "admin_dashboard")

	a := newTestConnection("a", "u1", models.RoleUser)
	b := newTestConnection("b", "u2", models.RoleUser)
	if err := router.HandleConnect(a); err != nil {
		t.Fatal(err)
	}
	if err := router.HandleConnect(b); err != nil {
		t.Fatal(err)
	}
	rooms.Join("a", "r1", "user")
	rooms.Join("b", "r1", "user")
	drain(a)
	drain(b)

	router.HandleEvent(context.Background(), a, inboundFrame(t, models.EventSendMessage, models.SendMessagePayload{
		Room:       "r1",
		SenderID:   "u1",
		ReceiverID: "u2",
		Content:    "hello",
	}))

	envelope := receiveEnvelope(t, b)
	if envelope.Event != models.EventReceiveMessage {
		t.Fatalf("b received %s, want receive_message", envelope.Event)
	}
	var msg models.Message
	if err := json.Unmarshal(envelope.Data, &msg); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(msg.ID, "tmp-") {
		t.Errorf("message id = %q, want temporary id", msg.ID)
	}
	if msg.Content != "hello" {
		t.Errorf("message content = %q", msg.Content)
	}
}

func TestSendMessageMissingFields(t *testing.T) {
	f := newRouterFixture(t)
	a := f.connect(t, "a", "u1", models.RoleUser)
	b := f.connect(t, "b", "u2", models.RoleUser)
	f.rooms.Join("a", "r1", "user")
	f.rooms.Join("b", "r1", "user")
	drain(a)
	drain(b)

	f.router.HandleEvent(context.Background(), a, inboundFrame(t, models.EventSendMessage, models.SendMessagePayload{
		Room:     "r1",
		SenderID: "u1",
		// receiver and content missing
	}))

	envelope := receiveEnvelope(t, a)
	if envelope.Event != models.EventMessageError {
		t.Fatalf("sender received %s, want message_error", envelope.Event)
	}
	expectNoEnvelope(t, b)
}

// Membership events with missing fields are silently ignored.
func TestMalformedMembershipEventsIgnored(t *testing.T) {
	f := newRouterFixture(t)
	a := f.connect(t, "a", "u1", models.RoleUser)

	f.router.HandleEvent(context.Background(), a, inboundFrame(t, models.EventJoinRoom, models.JoinRoomPayload{UserType: "user"}))
	f.router.HandleEvent(context.Background(), a, inboundFrame(t, models.EventLeaveRoom, models.LeaveRoomPayload{}))
	f.router.HandleEvent(context.Background(), a, inboundFrame(t, models.EventTyping, models.TypingPayload{Room: "r1"}))
	f.router.HandleEvent(context.Background(), a, []byte("not json"))
	f.router.HandleEvent(context.Background(), a, inboundFrame(t, "unknown_event", map[string]string{}))

	expectNoEnvelope(t, a)
	if rooms := f.registry.RoomsOf("a"); len(rooms) != 0 {
		t.Errorf("malformed join still joined rooms: %v", rooms)
	}
}

func TestMarkReadBroadcastsAndIsIdempotent(t *testing.T) {
	f := newRouterFixture(t)
	sender := f.connect(t, "s", "s1", models.RoleUser)
	reader := f.connect(t, "r", "r2", models.RoleUser)
	f.rooms.Join("s", "r1", "user")
	f.rooms.Join("r", "r1", "user")
	drain(sender)
	drain(reader)

	for i := 0; i < 3; i++ {
		if _, err := f.store.SaveMessage(context.Background(), "s1", "r2", "", "", "msg"); err != nil {
			t.Fatal(err)
		}
	}

	markRead := inboundFrame(t, models.EventMarkRead, models.MarkReadPayload{Room: "r1", UserID: "r2", SenderID: "s1"})
	f.router.HandleEvent(context.Background(), reader, markRead)

	envelope := receiveEnvelope(t, sender)
	if envelope.Event != models.EventMessagesRead {
		t.Fatalf("sender received %s, want messages_read", envelope.Event)
	}
	var payload models.MessagesReadPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Updated != 3 || payload.ReaderID != "r2" {
		t.Errorf("messages_read payload = %+v", payload)
	}
	expectNoEnvelope(t, reader)

	// Second invocation finds nothing unread.
	f.router.HandleEvent(context.Background(), reader, markRead)
	envelope = receiveEnvelope(t, sender)
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Updated != 0 {
		t.Errorf("second mark_read updated %d, want 0", payload.Updated)
	}
}

// get_online_users replies to the requester only, never the room.
func TestGetOnlineUsersRepliesToRequester(t *testing.T) {
	f := newRouterFixture(t)
	a := f.connect(t, "a", "u1", models.RoleUser)
	b := f.connect(t, "b", "u2", models.RoleUser)
	f.rooms.Join("a", "r1", "user")
	f.rooms.Join("b", "r1", "user")
	drain(a)
	drain(b)

	f.router.HandleEvent(context.Background(), a, inboundFrame(t, models.EventGetOnlineUsers, models.GetOnlineUsersPayload{Room: "r1"}))

	envelope := receiveEnvelope(t, a)
	if envelope.Event != models.EventOnlineUsers {
		t.Fatalf("requester received %s, want online_users", envelope.Event)
	}
	var payload models.OnlineUsersPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		t.Fatal(err)
	}
	if len(payload.Users) != 2 {
		t.Errorf("online_users listed %d users, want 2", len(payload.Users))
	}
	expectNoEnvelope(t, b)
}

// TestDisconnectCleansRoom covers the disconnect scenario end to end: the
// remaining member is notified and presence reflects the departure.
func TestDisconnectCleansRoom(t *testing.T) {
	f := newRouterFixture(t)
	a := f.connect(t, "a", "u1", models.RoleUser)
	b := f.connect(t, "b", "u2", models.RoleUser)
	f.rooms.Join("a", "r2", "user")
	f.rooms.Join("b", "r2", "user")
	f.presence.SetTyping("r2", "u1", true, "a")
	drain(a)
	drain(b)

	f.router.HandleDisconnect(a)

	envelope := receiveEnvelope(t, b)
	if envelope.Event != models.EventUserLeft {
		t.Fatalf("b received %s, want user_left", envelope.Event)
	}
	var payload models.UserLeftPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Room != "r2" {
		t.Errorf("user_left room = %q, want r2", payload.Room)
	}

	users := f.presence.OnlineUsers("r2")
	if len(users) != 1 || users[0].ParticipantID != "u2" {
		t.Errorf("OnlineUsers after disconnect = %+v", users)
	}
	if f.presence.Typing("r2", "u1") {
		t.Error("typing flag survived disconnect")
	}

	// A repeated disconnect must be harmless.
	f.router.HandleDisconnect(a)
	expectNoEnvelope(t, b)
}
