package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/easymo/deeplinks/internal/deeplink/domain"
	"github.com/easymo/deeplinks/internal/deeplink/http/mocks"
	"github.com/easymo/deeplinks/internal/metrics"
	"github.com/easymo/deeplinks/internal/ratelimit"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

// createTestContext creates a test Gin context with the given request.
func createTestContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var bodyReader io.Reader
	if body != nil {
		if raw, ok := body.(string); ok {
			bodyReader = bytes.NewBufferString(raw)
		} else {
			bodyBytes, _ := json.Marshal(body)
			bodyReader = bytes.NewReader(bodyBytes)
		}
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	return c, w
}

type handlerMocks struct {
	issue     *mocks.MockIssueUseCase
	resolve   *mocks.MockResolveUseCase
	bootstrap *mocks.MockBootstrapUseCase
}

func setupTestHandler(t *testing.T) (*DeeplinkHandler, *handlerMocks) {
	t.Helper()

	h := &handlerMocks{
		issue:     &mocks.MockIssueUseCase{},
		resolve:   &mocks.MockResolveUseCase{},
		bootstrap: &mocks.MockBootstrapUseCase{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewDeeplinkHandler(h.issue, h.resolve, h.bootstrap, logger), h
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func TestDeeplinkHandler_IssueHandler(t *testing.T) {
	expiresAt := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Run("Success_IssueDeeplink", func(t *testing.T) {
		handler, h := setupTestHandler(t)
		tokenID := uuid.Must(uuid.NewV7())
		ttl := 60
		msisdn := "+250788000001"

		output := &domain.IssueOutput{
			TokenID:     tokenID,
			Flow:        domain.FlowBasketOpen,
			Token:       "header.payload.sig",
			URL:         "https://easymo.link/basket_open?t=header.payload.sig",
			ExpiresAt:   expiresAt,
			TTLMinutes:  ttl,
			Payload:     map[string]any{"basket_id": "b-42", "nonce": "n1"},
			MSISDNBound: &msisdn,
			Nonce:       "n1",
		}

		h.issue.On("Issue", mock.Anything, mock.MatchedBy(func(input *domain.IssueInput) bool {
			return input.Flow == domain.FlowBasketOpen &&
				string(input.Payload) == `{"basket_id":"b-42"}` &&
				*input.MSISDN == msisdn &&
				*input.TTLMinutes == ttl &&
				!input.MultiUse
		})).Return(output, nil).Once()

		c, w := createTestContext(http.MethodPost, "/issue", map[string]any{
			"flow":        "basket_open",
			"payload":     map[string]any{"basket_id": "b-42"},
			"msisdn_e164": msisdn,
			"ttl_minutes": ttl,
		})

		handler.IssueHandler(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		response := decodeBody(t, w)
		assert.Equal(t, true, response["ok"])
		assert.Equal(t, tokenID.String(), response["tokenId"])
		assert.Equal(t, "basket_open", response["flow"])
		assert.Equal(t, "header.payload.sig", response["token"])
		assert.Equal(t, output.URL, response["url"])
		assert.Equal(t, msisdn, response["msisdnBound"])
		assert.Equal(t, float64(ttl), response["ttlMinutes"])
		assert.Equal(t, "n1", response["nonce"])
		assert.Equal(t, "basket_open", c.GetString(metrics.FlowContextKey))
		h.issue.AssertExpectations(t)
	})

	t.Run("Error_MalformedJSON", func(t *testing.T) {
		handler, h := setupTestHandler(t)

		c, w := createTestContext(http.MethodPost, "/issue", "{not json")

		handler.IssueHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		response := decodeBody(t, w)
		assert.Equal(t, false, response["ok"])
		assert.Equal(t, "invalid_payload", response["error"])
		h.issue.AssertNotCalled(t, "Issue")
	})

	t.Run("Error_UnknownFlow", func(t *testing.T) {
		handler, h := setupTestHandler(t)

		c, w := createTestContext(http.MethodPost, "/issue", map[string]any{
			"flow":    "unknown",
			"payload": map[string]any{},
		})

		handler.IssueHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		response := decodeBody(t, w)
		assert.Equal(t, "invalid_payload", response["error"])
		details, ok := response["details"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, details, "flow")
		h.issue.AssertNotCalled(t, "Issue")
	})

	t.Run("Error_NonPositiveTTL", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(http.MethodPost, "/issue", map[string]any{
			"flow":        "generate_qr",
			"ttl_minutes": 0,
		})

		handler.IssueHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		details, ok := decodeBody(t, w)["details"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "must be a positive integer", details["ttl_minutes"])
	})

	t.Run("Error_FlowDisabled", func(t *testing.T) {
		handler, h := setupTestHandler(t)

		h.issue.On("Issue", mock.Anything, mock.Anything).
			Return(nil, domain.ErrFlowDisabled).
			Once()

		c, w := createTestContext(http.MethodPost, "/issue", map[string]any{
			"flow":    "insurance_attach",
			"payload": map[string]any{"request_id": "req-1"},
		})

		handler.IssueHandler(c)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "flow_disabled", decodeBody(t, w)["error"])
		h.issue.AssertExpectations(t)
	})

	t.Run("Error_UnexpectedFailureHidesCause", func(t *testing.T) {
		handler, h := setupTestHandler(t)

		h.issue.On("Issue", mock.Anything, mock.Anything).
			Return(nil, assert.AnError).
			Once()

		c, w := createTestContext(http.MethodPost, "/issue", map[string]any{
			"flow": "generate_qr",
		})

		handler.IssueHandler(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		response := decodeBody(t, w)
		assert.Equal(t, "internal_error", response["error"])
		assert.NotContains(t, w.Body.String(), assert.AnError.Error())
	})
}

func TestDeeplinkHandler_ResolveHandler(t *testing.T) {
	expiresAt := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Run("Success_ResolveDeeplink", func(t *testing.T) {
		handler, h := setupTestHandler(t)
		tokenID := uuid.Must(uuid.NewV7())

		output := &domain.ResolveOutput{
			TokenID:      tokenID,
			Flow:         domain.FlowInsuranceAttach,
			Payload:      map[string]any{"request_id": "req-1"},
			ExpiresAt:    expiresAt,
			NextStepHint: domain.FlowInsuranceAttach.NextStepHint(),
			ViewURL:      "https://easymo.link/insurance_attach?t=tok",
			RateLimit:    ratelimit.Result{OK: true, Limit: 60, Remaining: 59, ResetAt: expiresAt},
		}

		h.resolve.On("Resolve", mock.Anything, mock.MatchedBy(func(input *domain.ResolveInput) bool {
			return input.Token == "tok" && input.ClientIP == "192.0.2.1"
		})).Return(output, nil).Once()

		c, w := createTestContext(http.MethodGet, "/resolve?t=tok", nil)

		handler.ResolveHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		response := decodeBody(t, w)
		assert.Equal(t, true, response["ok"])
		assert.Equal(t, tokenID.String(), response["tokenId"])
		assert.Equal(t, "insurance_attach", response["flow"])
		assert.Nil(t, response["msisdnBound"])
		assert.Equal(t, output.NextStepHint, response["nextStepHint"])
		assert.Equal(t, output.ViewURL, response["viewUrl"])

		rateLimit, ok := response["rateLimit"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, float64(59), rateLimit["remaining"])
		assert.Equal(t, "insurance_attach", c.GetString(metrics.FlowContextKey))
		h.resolve.AssertExpectations(t)
	})

	t.Run("Error_MissingToken", func(t *testing.T) {
		handler, h := setupTestHandler(t)

		c, w := createTestContext(http.MethodGet, "/resolve", nil)

		handler.ResolveHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_payload", decodeBody(t, w)["error"])
		h.resolve.AssertNotCalled(t, "Resolve")
	})

	t.Run("Error_RateLimitedSetsRetryAfter", func(t *testing.T) {
		handler, h := setupTestHandler(t)

		h.resolve.On("Resolve", mock.Anything, mock.Anything).
			Return(nil, domain.NewRateLimitError(domain.ScopeIP, ratelimit.Result{
				Limit:      60,
				RetryAfter: 1500 * time.Millisecond,
			})).
			Once()

		c, w := createTestContext(http.MethodGet, "/resolve?t=tok", nil)

		handler.ResolveHandler(c)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "2", w.Header().Get("Retry-After"))

		response := decodeBody(t, w)
		assert.Equal(t, "rate_limited", response["error"])
		details, ok := response["details"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "ip", details["scope"])
		assert.Equal(t, float64(1500), details["retryAfterMs"])
	})

	t.Run("Error_ExpiredToken", func(t *testing.T) {
		handler, h := setupTestHandler(t)

		h.resolve.On("Resolve", mock.Anything, mock.Anything).
			Return(nil, domain.ErrTokenExpired).
			Once()

		c, w := createTestContext(http.MethodGet, "/resolve?t=tok", nil)

		handler.ResolveHandler(c)

		assert.Equal(t, http.StatusGone, w.Code)
		assert.Equal(t, "token_expired", decodeBody(t, w)["error"])
	})

	t.Run("Error_UnknownToken", func(t *testing.T) {
		handler, h := setupTestHandler(t)

		h.resolve.On("Resolve", mock.Anything, mock.Anything).
			Return(nil, domain.ErrTokenNotFound).
			Once()

		c, w := createTestContext(http.MethodGet, "/resolve?t=tok", nil)

		handler.ResolveHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "token_not_found", decodeBody(t, w)["error"])
	})
}

func TestDeeplinkHandler_BootstrapHandler(t *testing.T) {
	expiresAt := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Run("Success_BootstrapDeeplink", func(t *testing.T) {
		handler, h := setupTestHandler(t)
		tokenID := uuid.Must(uuid.NewV7())

		output := &domain.BootstrapOutput{
			TokenID:   tokenID,
			Flow:      domain.FlowBasketOpen,
			Payload:   map[string]any{"basket_id": "b-42"},
			ExpiresAt: expiresAt,
			MultiUse:  true,
			State:     domain.BasketOpenState{Stage: "awaiting_join", BasketID: "b-42"},
			FirstPrompt: domain.InteractivePrompt{
				Body:    "Join basket b-42?",
				Buttons: []domain.Button{{Kind: domain.ButtonReply, Title: "Join", Payload: "basket_join::b-42"}},
			},
			OutboundMessage: domain.OutboundMessage{Type: "interactive", To: "+250788000001", Body: "Join basket b-42?"},
			IPRateLimit:     ratelimit.Result{OK: true, Limit: 60, Remaining: 59},
			UserRateLimit:   ratelimit.Result{OK: true, Limit: 60, Remaining: 58},
		}

		h.bootstrap.On("Bootstrap", mock.Anything, mock.MatchedBy(func(input *domain.BootstrapInput) bool {
			return input.Token == "tok" &&
				input.UserMSISDN == "0788 000 001" &&
				input.ClientIP == "192.0.2.1"
		})).Return(output, nil).Once()

		c, w := createTestContext(http.MethodPost, "/bootstrap", map[string]any{
			"token":       "tok",
			"user_msisdn": "0788 000 001",
		})

		handler.BootstrapHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		response := decodeBody(t, w)
		assert.Equal(t, true, response["ok"])
		assert.Equal(t, true, response["multiUse"])

		flowState, ok := response["flowState"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "basket_open", flowState["flow"])
		assert.Equal(t, "awaiting_join", flowState["stage"])

		prompt, ok := response["firstPrompt"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "interactive", prompt["type"])

		rateLimit, ok := response["rateLimit"].(map[string]any)
		require.True(t, ok)
		user, ok := rateLimit["user"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, float64(58), user["remaining"])
		assert.Equal(t, "basket_open", c.GetString(metrics.FlowContextKey))
		h.bootstrap.AssertExpectations(t)
	})

	t.Run("Error_MissingFields", func(t *testing.T) {
		handler, h := setupTestHandler(t)

		c, w := createTestContext(http.MethodPost, "/bootstrap", map[string]any{})

		handler.BootstrapHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		details, ok := decodeBody(t, w)["details"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, details, "token")
		assert.Contains(t, details, "user_msisdn")
		h.bootstrap.AssertNotCalled(t, "Bootstrap")
	})

	t.Run("Error_BoundToAnotherUser", func(t *testing.T) {
		handler, h := setupTestHandler(t)

		h.bootstrap.On("Bootstrap", mock.Anything, mock.Anything).
			Return(nil, domain.ErrTokenDenied.WithDetails(map[string]any{"reason": domain.ReasonMSISDNMismatch})).
			Once()

		c, w := createTestContext(http.MethodPost, "/bootstrap", map[string]any{
			"token":       "tok",
			"user_msisdn": "+250788000002",
		})

		handler.BootstrapHandler(c)

		assert.Equal(t, http.StatusForbidden, w.Code)
		response := decodeBody(t, w)
		assert.Equal(t, "token_denied", response["error"])
		details, ok := response["details"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, domain.ReasonMSISDNMismatch, details["reason"])
	})

	t.Run("Error_AlreadyUsed", func(t *testing.T) {
		handler, h := setupTestHandler(t)

		h.bootstrap.On("Bootstrap", mock.Anything, mock.Anything).
			Return(nil, domain.ErrTokenAlreadyUsed).
			Once()

		c, w := createTestContext(http.MethodPost, "/bootstrap", map[string]any{
			"token":       "tok",
			"user_msisdn": "+250788000002",
		})

		handler.BootstrapHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "token_already_used", decodeBody(t, w)["error"])
	})
}
