package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/easymo/deeplinks/internal/deeplink/domain"
	"github.com/easymo/deeplinks/internal/deeplink/service"
	"github.com/easymo/deeplinks/internal/validation"
)

// issueUseCase implements IssueUseCase.
type issueUseCase struct {
	codec     service.TokenCodec
	nonces    service.NonceGenerator
	tokenRepo TokenRepository
	flags     FlagGate
	events    EventRecorder
	cfg       Config
}

// Issue validates the payload for its flow, checks the flow flag, signs a
// token and persists its record. The response payload omits the nonce.
func (u *issueUseCase) Issue(ctx context.Context, input *domain.IssueInput) (*domain.IssueOutput, error) {
	flow, err := domain.ParseFlow(string(input.Flow))
	if err != nil {
		return nil, domain.ErrInvalidPayload.WithCause(err).WithDetails(map[string]any{
			"flow": "is not a supported flow",
		})
	}

	payload, err := domain.DecodePayload(flow, input.Payload)
	if err != nil {
		return nil, domain.ErrInvalidFlowPayload.WithCause(err).WithDetails(validation.FieldErrors(err))
	}

	var msisdn *string
	if input.MSISDN != nil {
		normalized, ok := domain.NormalizeMSISDN(*input.MSISDN)
		if !ok {
			return nil, domain.ErrInvalidPayload.WithDetails(map[string]any{
				"msisdn_e164": "must be a phone number in E.164 format",
			})
		}
		msisdn = &normalized
	}

	enabled, err := u.flags.IsEnabled(ctx, flow)
	if err != nil {
		return nil, domain.ErrFlagLookupFailed.WithCause(err)
	}
	if !enabled {
		return nil, domain.ErrFlowDisabled.WithDetails(map[string]any{"flow": flow})
	}

	now := u.cfg.now()
	ttl := u.cfg.ttl(input.TTLMinutes)
	expiresAt := now.Add(ttl).Truncate(time.Millisecond)

	nonce, err := u.nonces.GenerateNonce()
	if err != nil {
		return nil, domain.ErrTokenSignFailed.WithCause(err)
	}

	token, err := u.codec.Sign(domain.Claims{
		Flow:   flow,
		Nonce:  nonce,
		Exp:    domain.FormatExp(expiresAt),
		MSISDN: msisdn,
	})
	if err != nil {
		return nil, err
	}

	stored := payload.Fields()
	stored[domain.NonceKey] = nonce

	record := &domain.TokenRecord{
		ID:        uuid.Must(uuid.NewV7()),
		Flow:      flow,
		Token:     token,
		Payload:   stored,
		MSISDN:    msisdn,
		ExpiresAt: expiresAt,
		MultiUse:  input.MultiUse,
		CreatedBy: input.CreatedBy,
		CreatedAt: now,
	}
	if err := u.tokenRepo.Create(ctx, record); err != nil {
		return nil, domain.ErrTokenPersistFailed.WithCause(err)
	}

	metadata := map[string]any{
		"nonce":     nonce,
		"flow":      flow,
		"expiresAt": domain.FormatExp(expiresAt),
		"multiUse":  input.MultiUse,
	}
	if input.CreatedBy != nil {
		metadata["created_by"] = *input.CreatedBy
	}
	u.events.Record(ctx, newEvent(record, domain.EventIssued, msisdn, now, metadata))

	return &domain.IssueOutput{
		TokenID:     record.ID,
		Flow:        flow,
		Token:       token,
		URL:         u.cfg.linkURL(token),
		ExpiresAt:   expiresAt,
		TTLMinutes:  int(ttl / time.Minute),
		Payload:     payload.Fields(),
		MSISDNBound: msisdn,
		MultiUse:    input.MultiUse,
		Nonce:       nonce,
	}, nil
}

// NewIssueUseCase creates a new IssueUseCase with injected dependencies.
func NewIssueUseCase(
	codec service.TokenCodec,
	nonces service.NonceGenerator,
	tokenRepo TokenRepository,
	flags FlagGate,
	events EventRecorder,
	cfg Config,
) IssueUseCase {
	return &issueUseCase{
		codec:     codec,
		nonces:    nonces,
		tokenRepo: tokenRepo,
		flags:     flags,
		events:    events,
		cfg:       cfg.withDefaults(),
	}
}
