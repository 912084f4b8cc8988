package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventKind classifies an audit event.
type EventKind string

const (
	EventIssued    EventKind = "issued"
	EventOpened    EventKind = "opened"
	EventExpired   EventKind = "expired"
	EventDenied    EventKind = "denied"
	EventCompleted EventKind = "completed"
)

// Channel values recorded in event metadata under "via".
const (
	ViaResolver  = "resolver"
	ViaBootstrap = "bootstrap"
)

// Denial and expiry reasons recorded in event metadata under "reason".
const (
	ReasonMSISDNMismatch     = "msisdn_mismatch"
	ReasonAlreadyUsed        = "already_used"
	ReasonExpiredOnResolve   = "expired_on_resolve"
	ReasonExpiredOnBootstrap = "expired_on_bootstrap"
)

// AuditEvent is an append-only record of something that happened to a token.
type AuditEvent struct {
	ID            uuid.UUID
	TokenID       uuid.UUID
	Flow          Flow
	Kind          EventKind
	ActorIdentity *string
	Metadata      map[string]any
	CreatedAt     time.Time
}
