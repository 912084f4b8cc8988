package dto

import (
	"time"

	"github.com/easymo/deeplinks/internal/deeplink/domain"
	"github.com/easymo/deeplinks/internal/ratelimit"
)

// RateLimitResponse reports the state of a rate-limit bucket after a request.
type RateLimitResponse struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

// MapRateLimit converts a limiter result.
func MapRateLimit(result ratelimit.Result) RateLimitResponse {
	return RateLimitResponse{
		Limit:     result.Limit,
		Remaining: result.Remaining,
		ResetAt:   result.ResetAt,
	}
}

// IssueResponse is returned by POST /issue.
type IssueResponse struct {
	OK          bool           `json:"ok"`
	TokenID     string         `json:"tokenId"`
	Flow        domain.Flow    `json:"flow"`
	Token       string         `json:"token"`
	URL         string         `json:"url"`
	ExpiresAt   time.Time      `json:"expiresAt"`
	TTLMinutes  int            `json:"ttlMinutes"`
	Payload     map[string]any `json:"payload"`
	MSISDNBound *string        `json:"msisdnBound"`
	MultiUse    bool           `json:"multiUse"`
	Nonce       string         `json:"nonce"`
}

// MapIssueOutput converts the issue use case output.
func MapIssueOutput(output *domain.IssueOutput) IssueResponse {
	return IssueResponse{
		OK:          true,
		TokenID:     output.TokenID.String(),
		Flow:        output.Flow,
		Token:       output.Token,
		URL:         output.URL,
		ExpiresAt:   output.ExpiresAt,
		TTLMinutes:  output.TTLMinutes,
		Payload:     nonNil(output.Payload),
		MSISDNBound: output.MSISDNBound,
		MultiUse:    output.MultiUse,
		Nonce:       output.Nonce,
	}
}

// ResolveResponse is returned by GET /resolve.
type ResolveResponse struct {
	OK           bool              `json:"ok"`
	TokenID      string            `json:"tokenId"`
	Flow         domain.Flow       `json:"flow"`
	Payload      map[string]any    `json:"payload"`
	ExpiresAt    time.Time         `json:"expiresAt"`
	MSISDNBound  *string           `json:"msisdnBound"`
	NextStepHint string            `json:"nextStepHint"`
	MultiUse     bool              `json:"multiUse"`
	ViewURL      string            `json:"viewUrl"`
	RateLimit    RateLimitResponse `json:"rateLimit"`
}

// MapResolveOutput converts the resolve use case output.
func MapResolveOutput(output *domain.ResolveOutput) ResolveResponse {
	return ResolveResponse{
		OK:           true,
		TokenID:      output.TokenID.String(),
		Flow:         output.Flow,
		Payload:      nonNil(output.Payload),
		ExpiresAt:    output.ExpiresAt,
		MSISDNBound:  output.MSISDNBound,
		NextStepHint: output.NextStepHint,
		MultiUse:     output.MultiUse,
		ViewURL:      output.ViewURL,
		RateLimit:    MapRateLimit(output.RateLimit),
	}
}

// BootstrapRateLimit holds both buckets checked by POST /bootstrap.
type BootstrapRateLimit struct {
	IP   RateLimitResponse `json:"ip"`
	User RateLimitResponse `json:"user"`
}

// BootstrapResponse is returned by POST /bootstrap.
type BootstrapResponse struct {
	OK              bool                   `json:"ok"`
	TokenID         string                 `json:"tokenId"`
	Flow            domain.Flow            `json:"flow"`
	Payload         map[string]any         `json:"payload"`
	FlowState       domain.FlowState       `json:"flowState"`
	FirstPrompt     domain.Prompt          `json:"firstPrompt"`
	OutboundMessage domain.OutboundMessage `json:"outboundMessage"`
	MSISDNBound     *string                `json:"msisdnBound"`
	MultiUse        bool                   `json:"multiUse"`
	ExpiresAt       time.Time              `json:"expiresAt"`
	RateLimit       BootstrapRateLimit     `json:"rateLimit"`
}

// MapBootstrapOutput converts the bootstrap use case output.
func MapBootstrapOutput(output *domain.BootstrapOutput) BootstrapResponse {
	return BootstrapResponse{
		OK:              true,
		TokenID:         output.TokenID.String(),
		Flow:            output.Flow,
		Payload:         nonNil(output.Payload),
		FlowState:       output.State,
		FirstPrompt:     output.FirstPrompt,
		OutboundMessage: output.OutboundMessage,
		MSISDNBound:     output.MSISDNBound,
		MultiUse:        output.MultiUse,
		ExpiresAt:       output.ExpiresAt,
		RateLimit: BootstrapRateLimit{
			IP:   MapRateLimit(output.IPRateLimit),
			User: MapRateLimit(output.UserRateLimit),
		},
	}
}

func nonNil(fields map[string]any) map[string]any {
	if fields == nil {
		return map[string]any{}
	}
	return fields
}
