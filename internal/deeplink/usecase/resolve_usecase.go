package usecase

import (
	"context"

	"github.com/easymo/deeplinks/internal/deeplink/domain"
	"github.com/easymo/deeplinks/internal/deeplink/service"
	"github.com/easymo/deeplinks/internal/ratelimit"
)

// resolveUseCase implements ResolveUseCase.
type resolveUseCase struct {
	verifier *tokenVerifier
	limiter  ratelimit.Limiter
	events   EventRecorder
	cfg      Config
}

// Resolve previews a token. Repeated previews of a single-use token are
// allowed; only bootstrap consumes it.
func (u *resolveUseCase) Resolve(ctx context.Context, input *domain.ResolveInput) (*domain.ResolveOutput, error) {
	now := u.cfg.now()

	limit, err := checkLimit(
		ctx,
		u.limiter,
		"resolve:ip:"+input.ClientIP,
		domain.ScopeIP,
		u.cfg.ResolveLimit,
		u.cfg.RateLimitWindow,
		now,
	)
	if err != nil {
		return nil, err
	}

	verified, err := u.verifier.verify(ctx, input.Token, domain.ViaResolver, nil, now)
	if err != nil {
		return nil, err
	}
	record := verified.record

	u.events.Record(ctx, newEvent(record, domain.EventOpened, verified.claims.MSISDN, now, map[string]any{
		"via":   domain.ViaResolver,
		"nonce": verified.claims.Nonce,
	}))

	return &domain.ResolveOutput{
		TokenID:      record.ID,
		Flow:         record.Flow,
		Payload:      record.PublicPayload(),
		ExpiresAt:    verified.expiresAt,
		MSISDNBound:  record.MSISDN,
		MultiUse:     record.MultiUse,
		NextStepHint: record.Flow.NextStepHint(),
		ViewURL:      u.cfg.linkURL(record.Token),
		RateLimit:    limit,
	}, nil
}

// NewResolveUseCase creates a new ResolveUseCase with injected dependencies.
func NewResolveUseCase(
	codec service.TokenCodec,
	tokenRepo TokenRepository,
	flags FlagGate,
	events EventRecorder,
	limiter ratelimit.Limiter,
	cfg Config,
) ResolveUseCase {
	return &resolveUseCase{
		verifier: &tokenVerifier{
			codec:     codec,
			tokenRepo: tokenRepo,
			flags:     flags,
			events:    events,
		},
		limiter: limiter,
		events:  events,
		cfg:     cfg.withDefaults(),
	}
}
