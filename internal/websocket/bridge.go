package websocket

import (
	"context"
	"encoding/json"

	"govchat/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Bridge relays room broadcasts between instances over Redis pub/sub so a
// citizen and a staff member connected to different nodes still share a
// room. Nothing crosses the bridge durably; a restart loses in-flight
// envelopes, which matches the ephemeral nature of rooms.
type Bridge struct {
	rdb        *redis.Client
	channel    string
	instanceID string
}

type bridgeEnvelope struct {
	Origin  string          `json:"origin"`
	Room    string          `json:"room"`
	Payload json.RawMessage `json:"payload"`
}

func NewBridge(rdb *redis.Client, channel string) *Bridge {
	if channel == "" {
		channel = "chat:rooms"
	}
	return &Bridge{
		rdb:        rdb,
		channel:    channel,
		instanceID: uuid.NewString(),
	}
}

// Publish relays one marshaled room envelope to the other instances.
// Failures are logged and dropped; local delivery already happened.
func (b *Bridge) Publish(ctx context.Context, room string, payload []byte) {
	data, err := json.Marshal(bridgeEnvelope{
		Origin:  b.instanceID,
		Room:    room,
		Payload: payload,
	})
	if err != nil {
		logger.Error("Error marshaling bridge envelope: %v", err)
		return
	}

	if err := b.rdb.Publish(ctx, b.channel, data).Err(); err != nil {
		logger.Warn("Bridge publish failed for room %s: %v", room, err)
	}
}

// Run subscribes to the bridge channel and re-delivers remote envelopes to
// local room members. Envelopes this instance published are skipped. Blocks
// until the context is cancelled.
func (b *Bridge) Run(ctx context.Context, rooms *RoomManager) {
	pubsub := b.rdb.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var envelope bridgeEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				logger.Warn("Dropping malformed bridge envelope: %v", err)
				continue
			}
			if envelope.Origin == b.instanceID {
				continue
			}
			rooms.deliver(envelope.Room, envelope.Payload, "")
		}
	}
}
