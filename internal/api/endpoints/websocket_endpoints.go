package endpoints

import (
	"fmt"
	"net/http"
	"strings"

	internaljwt "livechat-backend/internal/jwt"
	"livechat-backend/internal/websocket"
)

type WebsocketEndpoints interface {
	Room(http.ResponseWriter, *http.Request) error
	User(http.ResponseWriter, *http.Request) error
	Channels(http.ResponseWriter, *http.Request) error
}

type WebsocketPaths struct {
	RoomPrefix string
	UserPrefix string
}

type websocketEndpoints struct {
	handler *websocket.Handler
	paths   WebsocketPaths
}

func NewWebsocketEndpoints(handler *websocket.Handler, prefix string) WebsocketEndpoints {
	base := strings.TrimRight(prefix, "/")
	return &websocketEndpoints{
		handler: handler,
		paths: WebsocketPaths{
			RoomPrefix: base + "/rooms/",
			UserPrefix: base + "/users/",
		},
	}
}

// Room joins the room:<id> channel. Any authenticated agent may watch a room.
func (h *websocketEndpoints) Room(w http.ResponseWriter, r *http.Request) error {
	roomID, err := channelID(r.URL.Path, h.paths.RoomPrefix)
	if err != nil {
		return err
	}
	agent, err := agentFromQueryToken(r)
	if err != nil {
		return err
	}
	if h.handler == nil {
		return &HTTPError{StatusCode: http.StatusServiceUnavailable, Message: "Websocket not available", ErrorLog: fmt.Errorf("websocket handler missing")}
	}
	h.handler.Join(w, r, websocket.RoomChannel(roomID), agent.ID)
	return nil
}

// User joins the user:<id> channel; agents only receive their own user updates.
func (h *websocketEndpoints) User(w http.ResponseWriter, r *http.Request) error {
	userID, err := channelID(r.URL.Path, h.paths.UserPrefix)
	if err != nil {
		return err
	}
	agent, err := agentFromQueryToken(r)
	if err != nil {
		return err
	}
	if agent.ID != userID {
		return &HTTPError{StatusCode: http.StatusForbidden, Message: "Token does not match user", ErrorLog: fmt.Errorf("user channel mismatch: %s vs %s", agent.ID, userID)}
	}
	if h.handler == nil {
		return &HTTPError{StatusCode: http.StatusServiceUnavailable, Message: "Websocket not available", ErrorLog: fmt.Errorf("websocket handler missing")}
	}
	h.handler.Join(w, r, websocket.UserChannel(userID), agent.ID)
	return nil
}

func (h *websocketEndpoints) Channels(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: func(w http.ResponseWriter, r *http.Request) error {
			if h.handler == nil {
				return WriteJSON(w, http.StatusOK, []websocket.ChannelRes{})
			}
			h.handler.Channels(w, r)
			return nil
		},
	})
}

func channelID(path, prefix string) (string, error) {
	trimmed := strings.TrimPrefix(path, prefix)
	id := strings.Trim(trimmed, "/")
	if prefix == "" || trimmed == path || id == "" || strings.Contains(id, "/") {
		return "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Channel not found", ErrorLog: fmt.Errorf("websocket path mismatch: %s", path)}
	}
	return id, nil
}

// agentFromQueryToken reads the agent token from ?token=, since browsers cannot set headers on upgrades.
func agentFromQueryToken(r *http.Request) (internaljwt.Agent, error) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		return internaljwt.Agent{}, &HTTPError{StatusCode: http.StatusUnauthorized, Message: "Missing token", ErrorLog: fmt.Errorf("websocket missing token")}
	}
	claims, err := internaljwt.ParseToken(token, internaljwt.RoleAgent)
	if err != nil {
		return internaljwt.Agent{}, &HTTPError{StatusCode: http.StatusUnauthorized, Message: "Unauthorized", ErrorLog: err}
	}
	agent, err := internaljwt.AgentFromClaims(claims)
	if err != nil {
		return internaljwt.Agent{}, &HTTPError{StatusCode: http.StatusUnauthorized, Message: "Unauthorized", ErrorLog: err}
	}
	return agent, nil
}
