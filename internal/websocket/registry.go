package websocket

import (
	"errors"
	"sync"
	"time"

	"govchat/internal/models"
)

// ErrDuplicateConnection is returned when a connection id is registered
// twice. Transport-assigned ids make this unreachable in practice.
var ErrDuplicateConnection = errors.New("connection already registered")

// Connection is one live socket: its identity, role, joined rooms, and the
// outbound queue the write pump drains. Rooms and the queue are guarded by
// the connection's own mutex so registry and room operations never block on
// a slow peer.
type Connection struct {
	ID            string
	ParticipantID string
	Role          models.Role
	ConnectedAt   time.Time

	mu     sync.Mutex
	rooms  map[string]struct{}
	send   chan []byte
	closed bool
}

// NewConnection builds a connection with a bounded outbound queue.
func NewConnection(id, participantID string, role models.Role, sendBuffer int) *Connection {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &Connection{
		ID:            id,
		ParticipantID: participantID,
		Role:          role,
		ConnectedAt:   time.Now(),
		rooms:         make(map[string]struct{}),
		send:          make(chan []byte, sendBuffer),
	}
}

// TrySend queues a payload without blocking. It reports false when the
// connection is closed or its queue is full, so one dead or slow peer never
// delays delivery to the rest of a room.
func (c *Connection) TrySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Outbound exposes the queue to the write pump.
func (c *Connection) Outbound() <-chan []byte {
	return c.send
}

// Rooms returns a snapshot of the joined room names.
func (c *Connection) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		out = append(out, room)
	}
	return out
}

func (c *Connection) addRoom(room string) {
	c.mu.Lock()
	c.rooms[room] = struct{}{}
	c.mu.Unlock()
}

func (c *Connection) removeRoom(room string) {
	c.mu.Lock()
	delete(c.rooms, room)
	c.mu.Unlock()
}

func (c *Connection) closeSend() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}

// ConnectionInfo is an observability snapshot of one live connection.
type ConnectionInfo struct {
	ConnectionID  string      `json:"connection_id"`
	ParticipantID string      `json:"participant_id"`
	Role          models.Role `json:"role"`
	ConnectedAt   time.Time   `json:"connected_at"`
	Rooms         []string    `json:"rooms"`
}

// Registry tracks every live connection. It owns no business logic, just
// bookkeeping behind a single mutex; no I/O happens under the lock.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Connection)}
}

// Register inserts a connection, failing on id reuse.
func (r *Registry) Register(conn *Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[conn.ID]; exists {
		return ErrDuplicateConnection
	}
	r.conns[conn.ID] = conn
	return nil
}

// Unregister removes the connection and returns the rooms it had joined so
// the caller can clean up membership. Unknown ids return nil: disconnect
// races are expected and must not raise.
func (r *Registry) Unregister(connectionID string) []string {
	r.mu.Lock()
	conn, ok := r.conns[connectionID]
	if ok {
		delete(r.conns, connectionID)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}
	rooms := conn.Rooms()
	conn.closeSend()
	return rooms
}

// Lookup returns the connection for an id.
func (r *Registry) Lookup(connectionID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[connectionID]
	return conn, ok
}

// RoomsOf returns the rooms a connection has joined, nil for unknown ids.
func (r *Registry) RoomsOf(connectionID string) []string {
	r.mu.RLock()
	conn, ok := r.conns[connectionID]
	r.mu.RUnlock()

	if !ok {
		return nil
	}
	return conn.Rooms()
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Snapshot lists every live connection for the observability endpoints.
func (r *Registry) Snapshot() []ConnectionInfo {
	r.mu.RLock()
	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	out := make([]ConnectionInfo, 0, len(conns))
	for _, conn := range conns {
		out = append(out, ConnectionInfo{
			ConnectionID:  conn.ID,
			ParticipantID: conn.ParticipantID,
			Role:          conn.Role,
			ConnectedAt:   conn.ConnectedAt,
			Rooms:         conn.Rooms(),
		})
	}
	return out
}
