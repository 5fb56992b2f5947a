package websocket

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func newClient(conn *websocket.Conn, channel, agentID string, logger *slog.Logger) *WSClient {
	return &WSClient{
		Conn:    conn,
		Message: make(chan *WSMessage, 16),
		ID:      uuid.NewString(),
		AgentID: agentID,
		Channel: channel,
		log:     logger.With(slog.String("agent_id", agentID)),
		done:    make(chan struct{}),
	}
}

// WSClient is one websocket connection. ID is unique per connection; AgentID names the
// authenticated agent, who may hold several connections on the same channel.
type WSClient struct {
	Conn     *websocket.Conn
	Message  chan *WSMessage
	ID       string
	AgentID  string
	Channel  string
	log      *slog.Logger
	done     chan struct{}
	mu       sync.Mutex
	isClosed bool
}

func (cl *WSClient) keepAlive() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-cl.done:
			return
		case <-ticker.C:
			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			err := cl.Conn.WriteMessage(websocket.PingMessage, nil)
			cl.mu.Unlock()

			if err != nil {
				cl.log.Debug("ping failed", slog.String("client_id", cl.ID), slog.Any("error", err))
				return
			}
		}
	}
}

func (cl *WSClient) writeMessage() {
	defer func() {
		cl.mu.Lock()
		cl.isClosed = true
		cl.Conn.Close()
		cl.mu.Unlock()
	}()

	for {
		select {
		case <-cl.done:
			return
		case msg, ok := <-cl.Message:
			if !ok {
				return
			}

			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			err := cl.Conn.WriteJSON(msg)
			cl.mu.Unlock()

			if err != nil {
				cl.log.Warn("websocket write failed", slog.String("client_id", cl.ID), slog.Any("error", err))
				return
			}
		}
	}
}

// readMessage only drains control frames; livechat channels are server-push.
func (cl *WSClient) readMessage(hub *Hub) {
	defer func() {
		if r := recover(); r != nil {
			cl.log.Error("websocket reader panicked", slog.Any("panic", r))
		}
		close(cl.done)
		hub.Unregister <- cl
		cl.log.Info("client disconnected", slog.String("client_id", cl.ID), slog.String("channel", cl.Channel))
	}()

	cl.Conn.SetReadLimit(4 * 1024)

	for {
		if _, _, err := cl.Conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				cl.log.Debug("websocket read failed", slog.String("client_id", cl.ID), slog.Any("error", err))
			}
			return
		}
	}
}
