package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/easymo/deeplinks/internal/deeplink/domain"
	"github.com/easymo/deeplinks/internal/deeplink/service"
	"github.com/easymo/deeplinks/internal/deeplink/usecase/mocks"
	"github.com/easymo/deeplinks/internal/ratelimit"
)

const (
	testBaseURL  = "https://easymo.link"
	testClientIP = "203.0.113.7"
	testSecret   = "test-signing-secret"
)

// harness wires the three deep-link use cases over a real codec and memory
// limiter, with mocked persistence and a controllable clock.
type harness struct {
	now time.Time

	codec       service.TokenCodec
	tokenRepo   *mocks.MockTokenRepository
	sessionRepo *mocks.MockSessionRepository
	flags       *mocks.MockFlagGate
	tx          *mocks.MockTxManager
	events      *mocks.EventRecorderSpy
	limiter     *ratelimit.MemoryLimiter

	issue     IssueUseCase
	resolve   ResolveUseCase
	bootstrap BootstrapUseCase
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		now:         time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		codec:       service.NewTokenCodec([]byte(testSecret)),
		tokenRepo:   &mocks.MockTokenRepository{},
		sessionRepo: &mocks.MockSessionRepository{},
		flags:       &mocks.MockFlagGate{},
		tx:          &mocks.MockTxManager{},
		events:      &mocks.EventRecorderSpy{},
		limiter:     ratelimit.NewMemoryLimiter(),
	}

	h.flags.On("IsEnabled", mock.Anything, mock.Anything).Return(true, nil).Maybe()
	h.tx.On("WithTx", mock.Anything).Return(nil).Maybe()

	cfg := h.config()
	h.issue = NewIssueUseCase(h.codec, service.NewNonceGenerator(), h.tokenRepo, h.flags, h.events, cfg)
	h.resolve = NewResolveUseCase(h.codec, h.tokenRepo, h.flags, h.events, h.limiter, cfg)
	h.bootstrap = NewBootstrapUseCase(
		h.tx, h.codec, h.tokenRepo, h.sessionRepo, h.flags, h.events, h.limiter, cfg,
	)

	t.Cleanup(func() {
		h.tokenRepo.AssertExpectations(t)
		h.sessionRepo.AssertExpectations(t)
	})
	return h
}

func (h *harness) config() Config {
	return Config{
		BaseURL:         testBaseURL + "/",
		DefaultTTL:      20160 * time.Minute,
		MaxTTL:          86400 * time.Minute,
		ResolveLimit:    60,
		BootstrapLimit:  60,
		RateLimitWindow: time.Minute,
		Now:             func() time.Time { return h.now },
	}
}

func (h *harness) advance(d time.Duration) {
	h.now = h.now.Add(d)
}

// issueToken issues a token through the use case and registers the stored
// record for lookup by the resolve and bootstrap paths.
func (h *harness) issueToken(t *testing.T, input *domain.IssueInput) (*domain.IssueOutput, *domain.TokenRecord) {
	t.Helper()

	var stored *domain.TokenRecord
	h.tokenRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.TokenRecord")).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(*domain.TokenRecord)
		}).
		Return(nil).
		Once()

	output, err := h.issue.Issue(context.Background(), input)
	require.NoError(t, err)
	require.NotNil(t, stored)

	h.tokenRepo.On("GetByToken", mock.Anything, output.Token).Return(stored, nil).Maybe()
	return output, stored
}

func basketInput(basketID string) *domain.IssueInput {
	return &domain.IssueInput{
		Flow:    domain.FlowBasketOpen,
		Payload: json.RawMessage(`{"basket_id":"` + basketID + `"}`),
	}
}

func intPtr(v int) *int {
	return &v
}

func strPtr(v string) *string {
	return &v
}
