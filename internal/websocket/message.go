package websocket

import "encoding/json"

// Message defines the structure for websocket messages.
type Message struct {
	Action  string `json:"action"`
	Payload any    `json:"payload"`
}

// NewMessage encodes an action and its payload for the wire.
func NewMessage(action string, payload any) ([]byte, error) {
	return json.Marshal(Message{Action: action, Payload: payload})
}
