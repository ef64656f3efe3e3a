package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"linkup-chat/internal/domain"
	"linkup-chat/internal/observability"
)

// RedisChannel is the Channel backend over Redis pub/sub. One Redis
// channel per room; payloads are JSON-encoded ChatMessages. Redis
// pub/sub is fire-and-forget, so the delivery guarantees match the
// contract exactly: no persistence, no replay, publisher echo included.
type RedisChannel struct {
	client *redis.Client
}

// NewRedisChannel wraps an already-connected go-redis client.
func NewRedisChannel(client *redis.Client) *RedisChannel {
	return &RedisChannel{client: client}
}

// DialRedis connects and pings a Redis server from a URL.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func redisTopic(roomID string) string {
	return "chat.room." + roomID
}

// Connect subscribes to the room's channel. The handle reaches
// StateConnected once Redis has confirmed the subscription.
func (c *RedisChannel) Connect(ctx context.Context, roomID string, onMessage MessageFunc) (Handle, error) {
	rh := &redisHandle{
		client: c.client,
		roomID: roomID,
	}
	rh.state.set(StateConnecting)

	pubsub := c.client.Subscribe(ctx, redisTopic(roomID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		rh.state.set(StateDisconnected)
		return nil, err
	}
	rh.pubsub = pubsub
	rh.state.set(StateConnected)

	go rh.readLoop(onMessage)
	return rh, nil
}

type redisHandle struct {
	client    *redis.Client
	pubsub    *redis.PubSub
	roomID    string
	state     state
	closeOnce sync.Once
}

func (rh *redisHandle) readLoop(onMessage MessageFunc) {
	for m := range rh.pubsub.Channel() {
		var msg domain.ChatMessage
		if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
			slog.Warn("discarding malformed broadcast payload",
				slog.String("room_id", rh.roomID),
				slog.String("error", err.Error()))
			continue
		}
		if msg.RoomID != rh.roomID {
			continue
		}
		observability.BroadcastDeliveries.WithLabelValues(rh.roomID, "redis").Inc()
		onMessage(msg)
	}
	rh.state.set(StateDisconnected)
}

func (rh *redisHandle) Publish(ctx context.Context, message domain.ChatMessage) error {
	if !rh.state.is(StateConnected) {
		return domain.ErrNotConnected
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	if err := rh.client.Publish(ctx, redisTopic(rh.roomID), payload).Err(); err != nil {
		return err
	}
	observability.BroadcastPublished.WithLabelValues(rh.roomID, "redis").Inc()
	return nil
}

func (rh *redisHandle) State() State {
	return rh.state.get()
}

func (rh *redisHandle) Disconnect() {
	rh.closeOnce.Do(func() {
		rh.state.set(StateDisconnected)
		if err := rh.pubsub.Close(); err != nil {
			slog.Warn("error closing redis subscription",
				slog.String("room_id", rh.roomID),
				slog.String("error", err.Error()))
		}
	})
}
