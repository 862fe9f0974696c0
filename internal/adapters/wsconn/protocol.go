package wsconn

import (
	"encoding/json"
	"errors"
	"strings"
)

// Error codes carried by the error event.
const (
	CodeBadPayload   = "bad_payload"
	CodeMissingField = "missing_field"
	CodeUnknownType  = "unknown_type"
	CodeNotInRoom    = "not_in_room"
	CodeNameTooLong  = "name_too_long"
	CodeBotBusy      = "bot_busy"
	CodeRateLimited  = "rate_limited"
)

const (
	TypePing  = "ping"
	TypePong  = "pong"
	TypeError = "error"
)

var ErrMissingType = errors.New("missing type")

type Envelope struct {
	Type string `json:"type"`
}

// ParseEnvelope extracts the event type of an inbound frame.
func ParseEnvelope(data []byte) (string, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", err
	}
	if strings.TrimSpace(env.Type) == "" {
		return "", ErrMissingType
	}
	return env.Type, nil
}

type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func NewError(code, field string) ErrorEvent {
	return ErrorEvent{Type: TypeError, Error: code, Field: field}
}

// Empty reports whether a raw JSON field was absent or null.
func Empty(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}
