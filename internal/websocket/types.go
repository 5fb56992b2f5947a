package websocket

import "encoding/json"

// Channel is a broadcast destination, either a room or a single user.
type Channel struct {
	Id      string               `json:"id"`
	Clients map[string]*WSClient `json:"clients"`
}

// WSMessage is what subscribers of a channel receive.
type WSMessage struct {
	Channel   string          `json:"channel"`
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

type ChannelRes struct {
	ID      string `json:"id"`
	Clients int    `json:"clients"`
}

func RoomChannel(roomID string) string {
	return "room:" + roomID
}

func UserChannel(userID string) string {
	return "user:" + userID
}
