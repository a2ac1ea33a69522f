package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/neon-tictactoe/internal/entity"
)

const (
	actionConnect    = "connect"
	actionGameTurn   = "game:turn"
	actionGameReset  = "game:reset"
	actionGameMode   = "game:mode"
	actionGameUpdate = "game:update"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type RequestPayload struct {
	Session string `json:"session,omitempty"`
	Cell    *int   `json:"cell,omitempty"`
	Mode    string `json:"mode,omitempty"`
}

type ResponsePayload struct {
	Session *entity.Snapshot `json:"session,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func encodeMessage(action string, payload ResponsePayload) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Message{Action: action, Payload: raw})
}
