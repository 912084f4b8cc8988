// Package usecase defines interfaces and implementations for deep-link use
// cases: issuing capability tokens, resolving them for the browser preview and
// bootstrapping the chat conversation they point to.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/easymo/deeplinks/internal/deeplink/domain"
)

// TokenRepository defines the interface for token record persistence.
type TokenRepository interface {
	Create(ctx context.Context, record *domain.TokenRecord) error

	// GetByToken returns the record for a signed token string, or
	// domain.ErrTokenNotFound.
	GetByToken(ctx context.Context, token string) (*domain.TokenRecord, error)

	// Claim marks a record consumed if it is not yet. Returns false when another
	// activation already claimed it. Uses transaction support via database.GetTx().
	Claim(ctx context.Context, id uuid.UUID, consumedBy string, at time.Time) (bool, error)

	// DeleteExpired deletes records that expired before the specified timestamp.
	DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error)

	// CountExpired counts records that expired before the specified timestamp.
	CountExpired(ctx context.Context, olderThan time.Time) (int64, error)
}

// AuditEventRepository defines the interface for audit event persistence.
type AuditEventRepository interface {
	Create(ctx context.Context, event *domain.AuditEvent) error
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	CountOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// SessionRepository defines the interface for chat session persistence.
type SessionRepository interface {
	// Upsert replaces the session for session.Phone. Last writer wins.
	Upsert(ctx context.Context, session *domain.Session) error
}

// FlagRepository reads feature flags.
type FlagRepository interface {
	// Get returns the flag value and whether the flag exists.
	Get(ctx context.Context, key string) (enabled bool, found bool, err error)
}

// FlagGate decides whether a flow is currently enabled.
type FlagGate interface {
	IsEnabled(ctx context.Context, flow domain.Flow) (bool, error)
}

// EventRecorder records audit events. Record never fails the caller:
// persistence errors are logged and dropped.
type EventRecorder interface {
	Record(ctx context.Context, event *domain.AuditEvent)
}

// IssueUseCase issues capability tokens.
type IssueUseCase interface {
	// Issue validates the payload, signs a token, persists its record and
	// records an "issued" event.
	Issue(ctx context.Context, input *domain.IssueInput) (*domain.IssueOutput, error)
}

// ResolveUseCase previews a token for the browser landing page.
type ResolveUseCase interface {
	// Resolve rate-limits by client IP, verifies the token against its record
	// and records an "opened" event. It never consumes the token.
	Resolve(ctx context.Context, input *domain.ResolveInput) (*domain.ResolveOutput, error)
}

// BootstrapUseCase activates a token inside the chat channel.
type BootstrapUseCase interface {
	// Bootstrap rate-limits by client IP and by user, runs the same
	// verification as Resolve, enforces the identity binding, claims
	// single-use tokens and writes the user's chat session.
	Bootstrap(ctx context.Context, input *domain.BootstrapInput) (*domain.BootstrapOutput, error)
}

// MaintenanceUseCase deletes stale records.
type MaintenanceUseCase interface {
	// CleanupExpiredTokens deletes token records that expired more than days
	// ago. Use dryRun=true to preview count without deletion.
	CleanupExpiredTokens(ctx context.Context, days int, dryRun bool) (int64, error)

	// CleanupEvents deletes audit events older than days.
	CleanupEvents(ctx context.Context, days int, dryRun bool) (int64, error)

	// PurgeRateLimitBuckets deletes shared rate-limit buckets whose window
	// has already ended.
	PurgeRateLimitBuckets(ctx context.Context) (int64, error)
}

// RateLimitBucketPurger deletes expired buckets from a shared limiter store.
type RateLimitBucketPurger interface {
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}
