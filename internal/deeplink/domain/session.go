package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeeplinkContext records which token started the conversation.
type DeeplinkContext struct {
	TokenID    uuid.UUID      `json:"token_id"`
	Flow       Flow           `json:"flow"`
	Nonce      string         `json:"nonce"`
	Payload    map[string]any `json:"payload"`
	MultiUse   bool           `json:"multi_use"`
	IssuedTo   *string        `json:"issued_to"`
	ResolvedAt time.Time      `json:"resolved_at"`
}

// SessionState is the JSON document stored per chat user.
type SessionState struct {
	Deeplink DeeplinkContext `json:"deeplink"`
	Flow     FlowState       `json:"flow"`
}

// Session is the conversation state of a chat user, keyed by phone number.
// At most one session exists per phone; the latest bootstrap wins.
type Session struct {
	Phone     string
	State     SessionState
	UpdatedAt time.Time
}
