package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"govchat/internal/models"
)

func newTestConnection(id, participantID string, role models.Role) *Connection {
	return NewConnection(id, participantID, role, 16)
}

// receiveEnvelope pops the next queued outbound frame, failing the test if
// none arrives in time.
func receiveEnvelope(t *testing.T, conn *Connection) models.Envelope {
	t.Helper()

	select {
	case raw, ok := <-conn.Outbound():
		if !ok {
			t.Fatalf("outbound queue for %s closed", conn.ID)
		}
		var envelope models.Envelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}
		return envelope
	case <-time.After(time.Second):
		t.Fatalf("no envelope delivered to %s", conn.ID)
	}
	return models.Envelope{}
}

// expectNoEnvelope asserts nothing is queued for the connection.
func expectNoEnvelope(t *testing.T, conn *Connection) {
	t.Helper()

	select {
	case raw := <-conn.Outbound():
		t.Fatalf("unexpected envelope for %s: %s", conn.ID, raw)
	default:
	}
}

// drain discards everything currently queued for the connection.
func drain(conn *Connection) {
	for {
		select {
		case <-conn.Outbound():
		default:
			return
		}
	}
}

func inboundFrame(t *testing.T, event models.EventType, payload interface{}) []byte {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	raw, err := json.Marshal(models.Envelope{Event: event, Data: data})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return raw
}
