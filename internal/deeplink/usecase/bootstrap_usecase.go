package usecase

import (
	"context"

	"github.com/easymo/deeplinks/internal/database"
	"github.com/easymo/deeplinks/internal/deeplink/domain"
	"github.com/easymo/deeplinks/internal/deeplink/service"
	apperrors "github.com/easymo/deeplinks/internal/errors"
	"github.com/easymo/deeplinks/internal/ratelimit"
)

// bootstrapUseCase implements BootstrapUseCase.
type bootstrapUseCase struct {
	txManager   database.TxManager
	verifier    *tokenVerifier
	tokenRepo   TokenRepository
	sessionRepo SessionRepository
	limiter     ratelimit.Limiter
	events      EventRecorder
	cfg         Config
}

// Bootstrap activates a token for the calling chat user.
func (u *bootstrapUseCase) Bootstrap(
	ctx context.Context,
	input *domain.BootstrapInput,
) (*domain.BootstrapOutput, error) {
	now := u.cfg.now()

	// The IP bucket is charged before any input checks so malformed requests
	// are limited too.
	ipLimit, err := checkLimit(ctx, u.limiter, "bootstrap:ip:"+input.ClientIP, domain.ScopeIP,
		u.cfg.BootstrapLimit, u.cfg.RateLimitWindow, now)
	if err != nil {
		return nil, err
	}

	phone, ok := domain.NormalizeMSISDN(input.UserMSISDN)
	if !ok {
		return nil, domain.ErrInvalidPayload.WithDetails(map[string]any{
			"user_msisdn": "must be a phone number in E.164 format",
		})
	}

	userLimit, err := checkLimit(ctx, u.limiter, "bootstrap:user:"+phone, domain.ScopeUser,
		u.cfg.BootstrapLimit, u.cfg.RateLimitWindow, now)
	if err != nil {
		return nil, err
	}

	verified, err := u.verifier.verify(ctx, input.Token, domain.ViaBootstrap, &phone, now)
	if err != nil {
		return nil, err
	}
	record := verified.record
	nonce := verified.claims.Nonce

	// The identity binding is the only authorization decision of the protocol.
	if record.MSISDN != nil && !domain.SameMSISDN(*record.MSISDN, phone) {
		u.events.Record(ctx, newEvent(record, domain.EventDenied, &phone, now, map[string]any{
			"reason":   domain.ReasonMSISDNMismatch,
			"expected": *record.MSISDN,
			"actual":   phone,
			"via":      domain.ViaBootstrap,
			"nonce":    nonce,
		}))
		return nil, domain.ErrTokenDenied.WithDetails(map[string]any{
			"reason": domain.ReasonMSISDNMismatch,
		})
	}

	payload, err := domain.PayloadFromFields(record.Flow, record.Payload)
	if err != nil {
		return nil, domain.ErrTokenPayloadInvalid.WithCause(err)
	}
	state, prompt := domain.BuildBootstrap(payload)

	session := &domain.Session{
		Phone: phone,
		State: domain.SessionState{
			Deeplink: domain.DeeplinkContext{
				TokenID:    record.ID,
				Flow:       record.Flow,
				Nonce:      nonce,
				Payload:    record.PublicPayload(),
				MultiUse:   record.MultiUse,
				IssuedTo:   record.MSISDN,
				ResolvedAt: now,
			},
			Flow: state,
		},
		UpdatedAt: now,
	}

	err = u.txManager.WithTx(ctx, func(ctx context.Context) error {
		if !record.MultiUse {
			claimed, err := u.tokenRepo.Claim(ctx, record.ID, phone, now)
			if err != nil {
				return domain.ErrTokenClaimFailed.WithCause(err)
			}
			if !claimed {
				return domain.ErrTokenAlreadyUsed
			}
		}
		if err := u.sessionRepo.Upsert(ctx, session); err != nil {
			return domain.ErrSessionPersistFailed.WithCause(err)
		}
		return nil
	})
	if err != nil {
		if apperrors.Is(err, domain.ErrTokenAlreadyUsed) {
			u.events.Record(ctx, newEvent(record, domain.EventDenied, &phone, now, map[string]any{
				"reason": domain.ReasonAlreadyUsed,
				"via":    domain.ViaBootstrap,
				"nonce":  nonce,
			}))
			return nil, domain.ErrTokenAlreadyUsed
		}
		if !apperrors.Is(err, domain.ErrTokenClaimFailed) && !apperrors.Is(err, domain.ErrSessionPersistFailed) {
			err = domain.ErrSessionPersistFailed.WithCause(err)
		}
		return nil, err
	}

	u.events.Record(ctx, newEvent(record, domain.EventOpened, &phone, now, map[string]any{
		"via":   domain.ViaBootstrap,
		"nonce": nonce,
	}))

	return &domain.BootstrapOutput{
		TokenID:         record.ID,
		Flow:            record.Flow,
		Payload:         record.PublicPayload(),
		ExpiresAt:       verified.expiresAt,
		MSISDNBound:     record.MSISDN,
		MultiUse:        record.MultiUse,
		State:           state,
		FirstPrompt:     prompt,
		OutboundMessage: domain.RenderOutbound(phone, prompt),
		IPRateLimit:     ipLimit,
		UserRateLimit:   userLimit,
	}, nil
}

// NewBootstrapUseCase creates a new BootstrapUseCase with injected dependencies.
func NewBootstrapUseCase(
	txManager database.TxManager,
	codec service.TokenCodec,
	tokenRepo TokenRepository,
	sessionRepo SessionRepository,
	flags FlagGate,
	events EventRecorder,
	limiter ratelimit.Limiter,
	cfg Config,
) BootstrapUseCase {
	return &bootstrapUseCase{
		txManager: txManager,
		verifier: &tokenVerifier{
			codec:     codec,
			tokenRepo: tokenRepo,
			flags:     flags,
			events:    events,
		},
		tokenRepo:   tokenRepo,
		sessionRepo: sessionRepo,
		limiter:     limiter,
		events:      events,
		cfg:         cfg.withDefaults(),
	}
}
