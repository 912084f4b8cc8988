package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/easymo/deeplinks/internal/deeplink/domain"
	"github.com/easymo/deeplinks/internal/deeplink/service"
	apperrors "github.com/easymo/deeplinks/internal/errors"
	"github.com/easymo/deeplinks/internal/ratelimit"
)

// verifiedToken is a token that passed every check shared by resolve and
// bootstrap.
type verifiedToken struct {
	claims    domain.Claims
	record    *domain.TokenRecord
	expiresAt time.Time
}

// tokenVerifier runs the verification pipeline shared by resolve and
// bootstrap: signature, record lookup, flow and nonce cross-checks, expiry and
// the feature flag. Each step short-circuits the rest.
type tokenVerifier struct {
	codec     service.TokenCodec
	tokenRepo TokenRepository
	flags     FlagGate
	events    EventRecorder
}

func (v *tokenVerifier) verify(
	ctx context.Context,
	token string,
	via string,
	actor *string,
	now time.Time,
) (*verifiedToken, error) {
	decoded, err := v.codec.Verify(token)
	if err != nil {
		return nil, err
	}
	claims := decoded.Claims

	record, err := v.tokenRepo.GetByToken(ctx, token)
	if err != nil {
		if apperrors.Is(err, domain.ErrTokenNotFound) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, domain.ErrTokenLookupFailed.WithCause(err)
	}

	if record.Flow != claims.Flow {
		return nil, domain.ErrTokenFlowMismatch.WithDetails(map[string]any{
			"tokenFlow":  claims.Flow,
			"recordFlow": record.Flow,
		})
	}

	claimsExpiry, err := claims.ExpiresAt()
	if err != nil {
		return nil, domain.ErrTokenExpiryInvalid.WithCause(err)
	}

	// The token nonce is tamper-evident; the record nonce is not. A mismatch
	// means the record was rotated or corrupted, not that the token is forged.
	if record.Nonce() != claims.Nonce {
		return nil, domain.ErrTokenNonceMismatch
	}

	if record.ExpiresAt.IsZero() {
		return nil, domain.ErrRecordExpiryInvalid
	}

	if !claimsExpiry.After(now) || record.IsExpired(now) {
		reason := domain.ReasonExpiredOnResolve
		if via == domain.ViaBootstrap {
			reason = domain.ReasonExpiredOnBootstrap
		}
		v.events.Record(ctx, newEvent(record, domain.EventExpired, actor, now, map[string]any{
			"reason": reason,
			"nonce":  claims.Nonce,
			"via":    via,
		}))
		return nil, domain.ErrTokenExpired
	}

	enabled, err := v.flags.IsEnabled(ctx, record.Flow)
	if err != nil {
		return nil, domain.ErrFlagLookupFailed.WithCause(err)
	}
	if !enabled {
		return nil, domain.ErrFlowDisabled.WithDetails(map[string]any{"flow": record.Flow})
	}

	return &verifiedToken{
		claims:    claims,
		record:    record,
		expiresAt: record.ExpiresAt,
	}, nil
}

// checkLimit runs one rate-limit check, converting a rejection into a
// RateLimitError for scope. Limiter failures fail closed.
func checkLimit(
	ctx context.Context,
	limiter ratelimit.Limiter,
	key string,
	scope string,
	limit int,
	window time.Duration,
	now time.Time,
) (ratelimit.Result, error) {
	result, err := limiter.Check(ctx, key, limit, window, now)
	if err != nil {
		return ratelimit.Result{}, domain.ErrRateLimitUnavailable.WithCause(err)
	}
	if !result.OK {
		return result, domain.NewRateLimitError(scope, result)
	}
	return result, nil
}

func newEvent(
	record *domain.TokenRecord,
	kind domain.EventKind,
	actor *string,
	now time.Time,
	metadata map[string]any,
) *domain.AuditEvent {
	return &domain.AuditEvent{
		ID:            uuid.Must(uuid.NewV7()),
		TokenID:       record.ID,
		Flow:          record.Flow,
		Kind:          kind,
		ActorIdentity: actor,
		Metadata:      metadata,
		CreatedAt:     now,
	}
}
