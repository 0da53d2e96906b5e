package interaction

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("interaction not found")
	ErrRejected = errors.New("interaction rejected")
	ErrExpired  = errors.New("interaction expired")
)

// WaitingData is one interaction waiting for a user decision.
type WaitingData struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Origin    string          `json:"origin"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Decode unmarshals the interaction payload into out.
func (w WaitingData) Decode(out any) error {
	return json.Unmarshal(w.Data, out)
}

type outcome struct {
	result json.RawMessage
	err    error
}

type entry struct {
	data WaitingData
	done chan outcome
}
