package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	channel string
	message string
}

type fakeRedis struct {
	sent []published
	err  error
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.sent = append(f.sent, published{channel: channel, message: message.(string)})
	return redis.NewIntResult(1, nil)
}

func TestBroadcasterPublishesToRoomAndUserChannels(t *testing.T) {
	fake := &fakeRedis{}
	b := NewBroadcaster(fake)
	b.now = func() time.Time { return time.Unix(1700000000, 0) }

	require.NoError(t, b.NotifyRoom(context.Background(), "r1", "message", map[string]string{"id": "m1"}))
	require.NoError(t, b.NotifyUser(context.Background(), "a1", "user.updated", map[string]any{"diff": map[string]any{}}))

	require.Len(t, fake.sent, 2)
	assert.Equal(t, "room:r1", fake.sent[0].channel)
	assert.Equal(t, "user:a1", fake.sent[1].channel)

	var msg WSMessage
	require.NoError(t, json.Unmarshal([]byte(fake.sent[0].message), &msg))
	assert.Equal(t, "message", msg.Event)
	assert.Equal(t, "room:r1", msg.Channel)
	assert.Equal(t, int64(1700000000), msg.Timestamp)
	assert.JSONEq(t, `{"id":"m1"}`, string(msg.Payload))
}

func TestBroadcasterErrors(t *testing.T) {
	b := NewBroadcaster(&fakeRedis{err: errors.New("down")})

	assert.Error(t, b.NotifyRoom(context.Background(), "", "message", nil))
	assert.Error(t, b.NotifyUser(context.Background(), "", "message", nil))
	assert.Error(t, b.NotifyRoom(context.Background(), "r1", "message", nil))
}

func TestHubDeliversToChannelClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	require.True(t, hub.Ensure("room:r1"))
	require.False(t, hub.Ensure("room:r1"))

	inRoom := &WSClient{ID: "c1", Channel: "room:r1", Message: make(chan *WSMessage, 1)}
	elsewhere := &WSClient{ID: "c2", Channel: "room:r2", Message: make(chan *WSMessage, 1)}
	hub.Register <- inRoom
	hub.Register <- elsewhere

	hub.Broadcast <- &WSMessage{Channel: "room:r1", Event: "message"}

	select {
	case msg := <-inRoom.Message:
		assert.Equal(t, "message", msg.Event)
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
	assert.Len(t, elsewhere.Message, 0)

	hub.Unregister <- inRoom
	assert.Eventually(t, func() bool {
		_, open := <-inRoom.Message
		return !open
	}, time.Second, 10*time.Millisecond)
}

func TestHubKeepsEveryConnectionOfTheSameAgent(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	channel := UserChannel("a1")
	hub.Ensure(channel)
	firstTab := newClient(nil, channel, "a1", slog.Default())
	secondTab := newClient(nil, channel, "a1", slog.Default())
	require.NotEqual(t, firstTab.ID, secondTab.ID)
	assert.Equal(t, "a1", firstTab.AgentID)

	hub.Register <- firstTab
	hub.Register <- secondTab
	clients := func() int {
		for _, ch := range hub.List() {
			if ch.ID == channel {
				return ch.Clients
			}
		}
		return 0
	}
	assert.Eventually(t, func() bool { return clients() == 2 }, time.Second, 10*time.Millisecond)

	hub.Broadcast <- &WSMessage{Channel: channel, Event: "user.updated"}
	for _, cl := range []*WSClient{firstTab, secondTab} {
		select {
		case msg := <-cl.Message:
			assert.Equal(t, "user.updated", msg.Event)
		case <-time.After(time.Second):
			t.Fatal("message not delivered to every tab")
		}
	}

	hub.Unregister <- firstTab
	assert.Eventually(t, func() bool { return clients() == 1 }, time.Second, 10*time.Millisecond)

	hub.Broadcast <- &WSMessage{Channel: channel, Event: "user.updated"}
	select {
	case <-secondTab.Message:
	case <-time.After(time.Second):
		t.Fatal("remaining tab stopped receiving")
	}
}
