package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypeRequestState = "request_state"
	TypePing         = "ping"

	// Server -> Client
	TypeSessionState     = "session_state"
	TypeCheckpointSaved  = "checkpoint_saved"
	TypeTimeRemaining    = "time_remaining"
	TypeSessionSubmitted = "session_submitted"
	TypeSessionClosed    = "session_closed"
	TypeError            = "error"
	TypePong             = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage encodes payload into a typed message.
func NewMessage(msgType string, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Payload: raw}, nil
}

// Client Messages (incoming)

type RequestStatePayload struct {
	SessionID string `json:"session_id"`
}

// Server Messages (outgoing)

type SessionStatePayload struct {
	SessionID        string   `json:"session_id"`
	Status           string   `json:"status"`
	CurrentIndex     int      `json:"current_index"`
	Accessible       []int    `json:"accessible"`
	Answered         []string `json:"answered"`
	Flagged          []string `json:"flagged"`
	RemainingSeconds int      `json:"remaining_seconds"`
}

type CheckpointSavedPayload struct {
	SessionID    string `json:"session_id"`
	SavedAt      string `json:"saved_at"`
	CurrentIndex int    `json:"current_index"`
	Answered     int    `json:"answered"`
	Flagged      int    `json:"flagged"`
}

type TimeRemainingPayload struct {
	SessionID        string `json:"session_id"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

type SessionSubmittedPayload struct {
	SessionID     string  `json:"session_id"`
	Score         int     `json:"score"`
	MaxScore      int     `json:"max_score"`
	Percentage    float64 `json:"percentage"`
	Grade         string  `json:"grade"`
	Passed        bool    `json:"passed"`
	Saved         bool    `json:"saved"`
	CertificateID string  `json:"certificate_id,omitempty"`
}

type SessionClosedPayload struct {
	SessionID string `json:"session_id"`
	Saved     bool   `json:"saved"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
