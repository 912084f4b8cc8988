package commands

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	deeplinkMocks "github.com/easymo/deeplinks/internal/deeplink/usecase/mocks"
)

func TestRunCleanExpiredDeeplinks(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	days := 7

	t.Run("text-output", func(t *testing.T) {
		mockUseCase := &deeplinkMocks.MockMaintenanceUseCase{}
		mockUseCase.On("CleanupExpiredTokens", ctx, days, false).Return(int64(10), nil)

		var out bytes.Buffer
		err := RunCleanExpiredDeeplinks(ctx, mockUseCase, logger, &out, days, false, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "Successfully deleted 10 expired deep link(s)")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("dry-run-text-output", func(t *testing.T) {
		mockUseCase := &deeplinkMocks.MockMaintenanceUseCase{}
		mockUseCase.On("CleanupExpiredTokens", ctx, days, true).Return(int64(3), nil)

		var out bytes.Buffer
		err := RunCleanExpiredDeeplinks(ctx, mockUseCase, logger, &out, days, true, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "Would delete 3 expired deep link(s)")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("json-output", func(t *testing.T) {
		mockUseCase := &deeplinkMocks.MockMaintenanceUseCase{}
		mockUseCase.On("CleanupExpiredTokens", ctx, days, true).Return(int64(5), nil)

		var out bytes.Buffer
		err := RunCleanExpiredDeeplinks(ctx, mockUseCase, logger, &out, days, true, "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"count": 5`)
		require.Contains(t, out.String(), `"dry_run": true`)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("invalid-days", func(t *testing.T) {
		mockUseCase := &deeplinkMocks.MockMaintenanceUseCase{}
		err := RunCleanExpiredDeeplinks(ctx, mockUseCase, logger, &bytes.Buffer{}, -1, false, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "days must be a positive number")
		mockUseCase.AssertNotCalled(t, "CleanupExpiredTokens")
	})

	t.Run("use-case-error", func(t *testing.T) {
		mockUseCase := &deeplinkMocks.MockMaintenanceUseCase{}
		mockUseCase.On("CleanupExpiredTokens", ctx, days, false).Return(int64(0), errors.New("db down"))

		err := RunCleanExpiredDeeplinks(ctx, mockUseCase, logger, &bytes.Buffer{}, days, false, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to clean expired deep links")
	})
}

func TestRunCleanDeeplinkEvents(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	days := 90

	t.Run("text-output", func(t *testing.T) {
		mockUseCase := &deeplinkMocks.MockMaintenanceUseCase{}
		mockUseCase.On("CleanupEvents", ctx, days, false).Return(int64(100), nil)

		var out bytes.Buffer
		err := RunCleanDeeplinkEvents(ctx, mockUseCase, logger, &out, days, false, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "Successfully deleted 100 event(s) older than 90 day(s)")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("json-output", func(t *testing.T) {
		mockUseCase := &deeplinkMocks.MockMaintenanceUseCase{}
		mockUseCase.On("CleanupEvents", ctx, days, true).Return(int64(50), nil)

		var out bytes.Buffer
		err := RunCleanDeeplinkEvents(ctx, mockUseCase, logger, &out, days, true, "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"count": 50`)
		require.Contains(t, out.String(), `"days": 90`)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("invalid-days", func(t *testing.T) {
		mockUseCase := &deeplinkMocks.MockMaintenanceUseCase{}
		err := RunCleanDeeplinkEvents(ctx, mockUseCase, logger, &bytes.Buffer{}, -5, false, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "days must be a positive number")
	})
}

func TestRunCleanRateLimitBuckets(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("text-output", func(t *testing.T) {
		mockUseCase := &deeplinkMocks.MockMaintenanceUseCase{}
		mockUseCase.On("PurgeRateLimitBuckets", ctx).Return(int64(12), nil)

		var out bytes.Buffer
		err := RunCleanRateLimitBuckets(ctx, mockUseCase, logger, &out, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "Successfully deleted 12 expired rate limit bucket(s)")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("json-output", func(t *testing.T) {
		mockUseCase := &deeplinkMocks.MockMaintenanceUseCase{}
		mockUseCase.On("PurgeRateLimitBuckets", ctx).Return(int64(4), nil)

		var out bytes.Buffer
		err := RunCleanRateLimitBuckets(ctx, mockUseCase, logger, &out, "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"count": 4`)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("use-case-error", func(t *testing.T) {
		mockUseCase := &deeplinkMocks.MockMaintenanceUseCase{}
		mockUseCase.On("PurgeRateLimitBuckets", ctx).Return(int64(0), errors.New("not stored in the database"))

		err := RunCleanRateLimitBuckets(ctx, mockUseCase, logger, &bytes.Buffer{}, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to clean rate limit buckets")
	})
}
