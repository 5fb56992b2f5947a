package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Handler struct {
	hub         *Hub
	redisClient *redis.Client
	log         *slog.Logger
	ctx         context.Context
}

func NewHandler(ctx context.Context, h *Hub, client *redis.Client, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		hub:         h,
		redisClient: client,
		log:         logger,
		ctx:         ctx,
	}
}

// subscribe relays every message published on the redis channel into the hub until ctx ends.
func (h *Handler) subscribe(channel string) {
	h.log.Info("subscribing to redis channel", slog.String("channel", channel))
	subscriber := h.redisClient.Subscribe(h.ctx, channel)
	defer subscriber.Close()

	for msg := range subscriber.Channel() {
		var wsMsg WSMessage
		if err := json.Unmarshal([]byte(msg.Payload), &wsMsg); err != nil {
			h.log.Warn("dropping malformed notification",
				slog.String("channel", channel),
				slog.Any("error", err),
			)
			continue
		}
		wsMsg.Channel = channel
		select {
		case h.hub.Broadcast <- &wsMsg:
		case <-h.ctx.Done():
			return
		}
	}
	h.log.Info("unsubscribed from redis channel", slog.String("channel", channel))
}

// Ensure makes sure the hub has the channel and this instance listens to it on redis.
func (h *Handler) Ensure(channel string) {
	if h.hub.Ensure(channel) {
		go h.subscribe(channel)
	}
}

// Join upgrades the request and attaches the connection to channel on behalf of agentID.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request, channel, agentID string) {
	h.Ensure(channel)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", slog.String("channel", channel), slog.Any("error", err))
		return
	}

	cl := newClient(conn, channel, agentID, h.log)

	h.hub.Register <- cl

	go cl.keepAlive()
	go cl.writeMessage()
	go cl.readMessage(h.hub)
}

func (h *Handler) Channels(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(h.hub.List())
}
