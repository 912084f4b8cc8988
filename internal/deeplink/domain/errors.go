package domain

import (
	"fmt"

	apperrors "github.com/easymo/deeplinks/internal/errors"
	"github.com/easymo/deeplinks/internal/ratelimit"
)

// Coded errors returned by the deep-link use cases. The code is the stable
// "error" value of the JSON envelope; the kind selects the HTTP status.
var (
	ErrInvalidPayload = apperrors.NewCoded(
		apperrors.ErrInvalidInput, "invalid_payload", "request is invalid")
	ErrInvalidFlowPayload = apperrors.NewCoded(
		apperrors.ErrInvalidInput, "invalid_flow_payload", "payload does not match the flow schema")
	ErrFlowDisabled = apperrors.NewCoded(
		apperrors.ErrForbidden, "flow_disabled", "flow is disabled")
	ErrTokenSignFailed = apperrors.NewCoded(
		apperrors.ErrInternal, "token_sign_failed", "failed to sign token")
	ErrTokenVerifyFailed = apperrors.NewCoded(
		apperrors.ErrInternal, "token_verify_failed", "failed to verify token")
	ErrTokenPersistFailed = apperrors.NewCoded(
		apperrors.ErrInternal, "token_persist_failed", "failed to persist token")

	ErrTokenMalformed = apperrors.NewCoded(
		apperrors.ErrInvalidInput, "token_malformed", "token is malformed")
	ErrTokenSignatureInvalid = apperrors.NewCoded(
		apperrors.ErrInvalidInput, "token_signature_invalid", "token signature is invalid")
	ErrTokenHeaderInvalid = apperrors.NewCoded(
		apperrors.ErrInvalidInput, "token_header_invalid", "token header is invalid")
	ErrTokenNotFound = apperrors.NewCoded(
		apperrors.ErrNotFound, "token_not_found", "token not found")
	ErrTokenLookupFailed = apperrors.NewCoded(
		apperrors.ErrInternal, "token_lookup_failed", "failed to look up token")
	ErrTokenFlowMismatch = apperrors.NewCoded(
		apperrors.ErrConflict, "token_flow_mismatch", "token flow does not match the stored record")
	ErrTokenExpiryInvalid = apperrors.NewCoded(
		apperrors.ErrInternal, "token_expiry_invalid", "token expiry is not a valid timestamp")
	ErrTokenNonceMismatch = apperrors.NewCoded(
		apperrors.ErrConflict, "token_nonce_mismatch", "token nonce does not match the stored record")
	ErrRecordExpiryInvalid = apperrors.NewCoded(
		apperrors.ErrInternal, "token_record_expiry_invalid", "stored token expiry is invalid")
	ErrTokenExpired = apperrors.NewCoded(
		apperrors.ErrGone, "token_expired", "token has expired")
	ErrTokenDenied = apperrors.NewCoded(
		apperrors.ErrForbidden, "token_denied", "token is not valid for this user")
	ErrTokenAlreadyUsed = apperrors.NewCoded(
		apperrors.ErrConflict, "token_already_used", "token has already been used")
	ErrTokenClaimFailed = apperrors.NewCoded(
		apperrors.ErrInternal, "token_claim_failed", "failed to mark token as used")
	ErrTokenPayloadInvalid = apperrors.NewCoded(
		apperrors.ErrInternal, "token_payload_invalid", "stored token payload does not match the flow schema")

	ErrFlagLookupFailed = apperrors.NewCoded(
		apperrors.ErrInternal, "flag_lookup_failed", "failed to read feature flag")
	ErrSessionPersistFailed = apperrors.NewCoded(
		apperrors.ErrInternal, "session_persist_failed", "failed to persist chat session")
	ErrRateLimitUnavailable = apperrors.NewCoded(
		apperrors.ErrInternal, "rate_limit_unavailable", "rate limiter is unavailable")
	ErrRateLimited = apperrors.NewCoded(
		apperrors.ErrTooManyRequests, "rate_limited", "too many requests")
)

// Rate-limit scopes reported when a check trips.
const (
	ScopeIP   = "ip"
	ScopeUser = "user"
)

// RateLimitError reports a rejected rate-limit check. It unwraps to
// ErrRateLimited carrying the scope and retry delay as details.
type RateLimitError struct {
	Scope  string
	Result ratelimit.Result
}

// NewRateLimitError creates a RateLimitError for a rejected check.
func NewRateLimitError(scope string, result ratelimit.Result) *RateLimitError {
	return &RateLimitError{Scope: scope, Result: result}
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate_limited: scope %s, retry after %s", e.Scope, e.Result.RetryAfter)
}

// Unwrap exposes the coded error carrying the response details.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited.WithDetails(map[string]any{
		"scope":        e.Scope,
		"retryAfterMs": e.Result.RetryAfter.Milliseconds(),
		"limit":        e.Result.Limit,
	})
}

// RetryAfterSeconds is the Retry-After header value.
func (e *RateLimitError) RetryAfterSeconds() int {
	return e.Result.RetryAfterSeconds()
}
