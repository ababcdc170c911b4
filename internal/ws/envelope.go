package ws

import (
	"encoding/json"
	"fmt"
)

// Envelope is one push frame. Seq is stamped by the hub and increases per
// process; clients only use it for logging.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Seq   uint64          `json:"seq,omitempty"`
}

// Registration is the payload of the register event a session sends once
// connected.
type Registration struct {
	Role   string `json:"role"`
	UserID string `json:"userId"`
}

// NewEnvelope marshals data into an envelope for event.
func NewEnvelope(event string, data any) (Envelope, error) {
	env := Envelope{Event: event}
	if data == nil {
		return env, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return env, fmt.Errorf("encode %s payload: %w", event, err)
	}
	env.Data = raw
	return env, nil
}
