package game

import (
	"encoding/json"
	"fmt"
)

// Message type for WebSocket communication between client and server.
type MessageType string

const (
	MsgTypeJoin    MessageType = "join"    // Client starts (or resumes) a session
	MsgTypeState   MessageType = "state"   // Server sends the full session state
	MsgTypeClick   MessageType = "click"   // Client clicks on the altered image
	MsgTypeResult  MessageType = "result"  // Server sends the outcome of a click
	MsgTypePowerup MessageType = "powerup" // Client uses a powerup
	MsgTypePause   MessageType = "pause"   // Client pauses the clock
	MsgTypeResume  MessageType = "resume"  // Client resumes the clock
	MsgTypeRestart MessageType = "restart" // Client restarts from the first level
	MsgTypeClaim   MessageType = "claim"   // Client claims purchased powerups
	MsgTypeError   MessageType = "error"   // Server sends an error message
)

// WsMessage represents a WebSocket message.
type WsMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewWsMessage creates a new WsMessage with a marshaled payload.
func NewWsMessage(msgType MessageType, payload interface{}) (WsMessage, error) {
	if payload == nil {
		return WsMessage{Type: msgType}, nil
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return WsMessage{}, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return WsMessage{
		Type:    msgType,
		Payload: payloadBytes,
	}, nil
}

// Parse unmarshals the message payload into one of the message types (JoinMessage, StateMessage, etc.)
func (m *WsMessage) Parse() (any, error) {
	var target any
	switch m.Type {
	case MsgTypeJoin:
		target = &JoinMessage{}
	case MsgTypeState:
		target = &StateMessage{}
	case MsgTypeClick:
		target = &ClickMessage{}
	case MsgTypeResult:
		target = &ResultMessage{}
	case MsgTypePowerup:
		target = &PowerupMessage{}
	case MsgTypePause:
		target = &PauseMessage{}
	case MsgTypeResume:
		target = &ResumeMessage{}
	case MsgTypeRestart:
		target = &RestartMessage{}
	case MsgTypeClaim:
		target = &ClaimMessage{}
	case MsgTypeError:
		target = &ErrorMessage{}
	default:
		return nil, fmt.Errorf("unknown message type: %s", m.Type)
	}

	if len(m.Payload) == 0 {
		return target, nil
	}

	err := json.Unmarshal(m.Payload, target)
	return target, err
}

// JoinMessage is the payload for MsgTypeJoin
type JoinMessage struct {
	PlayerID string    `json:"player_id"`
	Powerups *Powerups `json:"powerups,omitempty"` // Powerups saved by the client; nil for a new player
}

// StateMessage is the payload for MsgTypeState
type StateMessage struct {
	Session SessionState `json:"session"`
}

// ClickMessage is the payload for MsgTypeClick
type ClickMessage struct {
	X             float64 `json:"x"` // Offset from the image's top-left corner, display pixels
	Y             float64 `json:"y"`
	DisplayWidth  float64 `json:"display_width"` // Size the image is rendered at
	DisplayHeight float64 `json:"display_height"`
}

// Transform returns the display to base transform for the click.
// Without a display size the image is assumed to be shown at base resolution.
func (c ClickMessage) Transform() Transform {
	if c.DisplayWidth <= 0 || c.DisplayHeight <= 0 {
		return Identity
	}
	return NewTransform(c.DisplayWidth, c.DisplayHeight)
}

// ResultMessage is the payload for MsgTypeResult
type ResultMessage struct {
	Matched      []int `json:"matched"`       // Regions found by this click
	AlreadyFound bool  `json:"already_found"` // Click hit a region found before
	Wrong        bool  `json:"wrong"`         // Click hit nothing; time penalty applied
	Completed    bool  `json:"completed"`     // Level complete
	Warn         bool  `json:"warn"`          // Clock reached the warning mark
	Failed       bool  `json:"failed"`        // Time is up
}

// PowerupMessage is the payload for MsgTypePowerup
type PowerupMessage struct {
	Kind PowerupKind `json:"kind"`
}

// PauseMessage: empty.
type PauseMessage struct{}

// ResumeMessage: empty.
type ResumeMessage struct{}

// RestartMessage: empty.
type RestartMessage struct{}

// ClaimMessage is the payload for MsgTypeClaim. Either field may be set: a payment intent is
// confirmed directly, an email collects the grants left by completed checkouts.
type ClaimMessage struct {
	Email           string `json:"email,omitempty"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
}

// ErrorMessage is the payload for MsgTypeError
type ErrorMessage struct {
	Message string `json:"message"`
}
