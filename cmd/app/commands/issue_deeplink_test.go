package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/easymo/deeplinks/internal/deeplink/domain"
	"github.com/easymo/deeplinks/internal/deeplink/http/dto"
	"github.com/easymo/deeplinks/internal/deeplink/http/mocks"
)

func TestRunIssueDeeplink(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	msisdn := "+250788000001"
	output := &domain.IssueOutput{
		TokenID:     uuid.Must(uuid.NewV7()),
		Flow:        domain.FlowBasketOpen,
		Token:       "signed-token",
		URL:         "https://easymo.link/b/signed-token",
		ExpiresAt:   time.Date(2025, 1, 1, 13, 0, 0, 0, time.UTC),
		TTLMinutes:  60,
		Payload:     map[string]any{"basket_id": "b-1"},
		MSISDNBound: &msisdn,
		Nonce:       "abc",
	}

	t.Run("text-output", func(t *testing.T) {
		mockUseCase := &mocks.MockIssueUseCase{}
		mockUseCase.On("Issue", ctx, mock.MatchedBy(func(input *domain.IssueInput) bool {
			return input.Flow == domain.FlowBasketOpen && *input.MSISDN == msisdn
		})).Return(output, nil)

		request := &dto.IssueRequest{
			Flow:       "basket_open",
			Payload:    json.RawMessage(`{"basket_id":"b-1"}`),
			MSISDNE164: &msisdn,
		}

		var out bytes.Buffer
		err := RunIssueDeeplink(ctx, mockUseCase, logger, &out, request, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "Deep link issued successfully")
		require.Contains(t, out.String(), "https://easymo.link/b/signed-token")
		require.Contains(t, out.String(), "Bound To:   +250788000001")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("json-output", func(t *testing.T) {
		mockUseCase := &mocks.MockIssueUseCase{}
		mockUseCase.On("Issue", ctx, mock.Anything).Return(output, nil)

		request := &dto.IssueRequest{Flow: "basket_open", Payload: json.RawMessage(`{"basket_id":"b-1"}`)}

		var out bytes.Buffer
		err := RunIssueDeeplink(ctx, mockUseCase, logger, &out, request, "json")
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
		require.Equal(t, true, decoded["ok"])
		require.Equal(t, "signed-token", decoded["token"])
		require.Equal(t, output.TokenID.String(), decoded["tokenId"])
	})

	t.Run("invalid-flow", func(t *testing.T) {
		mockUseCase := &mocks.MockIssueUseCase{}

		err := RunIssueDeeplink(ctx, mockUseCase, logger, &bytes.Buffer{}, &dto.IssueRequest{Flow: "nope"}, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid deep link request")
		mockUseCase.AssertNotCalled(t, "Issue")
	})

	t.Run("use-case-error", func(t *testing.T) {
		mockUseCase := &mocks.MockIssueUseCase{}
		mockUseCase.On("Issue", ctx, mock.Anything).Return(nil, domain.ErrFlowDisabled)

		request := &dto.IssueRequest{Flow: "generate_qr"}
		err := RunIssueDeeplink(ctx, mockUseCase, logger, &bytes.Buffer{}, request, "text")

		require.ErrorIs(t, err, domain.ErrFlowDisabled)
	})
}
