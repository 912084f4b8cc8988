package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/easymo/deeplinks/internal/ratelimit"
)

// IssueInput contains the parameters for issuing a token.
type IssueInput struct {
	Flow       Flow
	Payload    json.RawMessage
	MSISDN     *string
	TTLMinutes *int
	MultiUse   bool
	CreatedBy  *string
}

// IssueOutput describes a newly issued token.
type IssueOutput struct {
	TokenID     uuid.UUID
	Flow        Flow
	Token       string
	URL         string
	ExpiresAt   time.Time
	TTLMinutes  int
	Payload     map[string]any
	MSISDNBound *string
	MultiUse    bool
	Nonce       string
}

// ResolveInput contains the parameters for the browser-side preview.
type ResolveInput struct {
	Token    string
	ClientIP string
}

// ResolveOutput is the preview shown on the landing page.
type ResolveOutput struct {
	TokenID      uuid.UUID
	Flow         Flow
	Payload      map[string]any
	ExpiresAt    time.Time
	MSISDNBound  *string
	MultiUse     bool
	NextStepHint string
	ViewURL      string
	RateLimit    ratelimit.Result
}

// BootstrapInput contains the parameters for activating a token in chat.
type BootstrapInput struct {
	Token      string
	UserMSISDN string
	ClientIP   string
}

// BootstrapOutput is the activated conversation.
type BootstrapOutput struct {
	TokenID         uuid.UUID
	Flow            Flow
	Payload         map[string]any
	ExpiresAt       time.Time
	MSISDNBound     *string
	MultiUse        bool
	State           FlowState
	FirstPrompt     Prompt
	OutboundMessage OutboundMessage
	IPRateLimit     ratelimit.Result
	UserRateLimit   ratelimit.Result
}
