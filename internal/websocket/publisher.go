package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"livechat-backend/internal/env"

	"github.com/go-redis/redis/v8"
)

func NewRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     env.Get(env.ChatRedisURL),
		Password: env.Get(env.ChatRedisPass),
		DB:       0,
	})
}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Broadcaster publishes room and user notifications to redis, where every ws-server
// instance picks them up. It implements livechat.Notifier.
type Broadcaster struct {
	client redisPublisher
	now    func() time.Time
}

func NewBroadcaster(client redisPublisher) *Broadcaster {
	return &Broadcaster{client: client, now: time.Now}
}

func (b *Broadcaster) NotifyRoom(ctx context.Context, roomID, event string, payload any) error {
	if roomID == "" {
		return fmt.Errorf("websocket publish: roomID required")
	}
	return b.publish(ctx, RoomChannel(roomID), event, payload)
}

func (b *Broadcaster) NotifyUser(ctx context.Context, userID, event string, payload any) error {
	if userID == "" {
		return fmt.Errorf("websocket publish: userID required")
	}
	return b.publish(ctx, UserChannel(userID), event, payload)
}

func (b *Broadcaster) publish(ctx context.Context, channel, event string, payload any) error {
	if b.client == nil {
		return fmt.Errorf("websocket publish: redis client not initialised")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("websocket publish: marshal payload: %w", err)
	}
	msg, err := json.Marshal(WSMessage{
		Channel:   channel,
		Event:     event,
		Payload:   body,
		Timestamp: b.now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("websocket publish: marshal message: %w", err)
	}

	if err := b.client.Publish(ctx, channel, string(msg)).Err(); err != nil {
		notificationsPublished.WithLabelValues(event, "error").Inc()
		return fmt.Errorf("websocket publish: redis publish: %w", err)
	}
	notificationsPublished.WithLabelValues(event, "ok").Inc()
	return nil
}
