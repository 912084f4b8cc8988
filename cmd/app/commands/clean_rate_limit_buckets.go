package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	deeplinkUseCase "github.com/easymo/deeplinks/internal/deeplink/usecase"
)

// RunCleanRateLimitBuckets deletes shared rate-limit buckets whose window has ended.
func RunCleanRateLimitBuckets(
	ctx context.Context,
	maintenanceUseCase deeplinkUseCase.MaintenanceUseCase,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	logger.Info("cleaning rate limit buckets")

	count, err := maintenanceUseCase.PurgeRateLimitBuckets(ctx)
	if err != nil {
		return fmt.Errorf("failed to clean rate limit buckets: %w", err)
	}

	if format == "json" {
		if err := writeJSON(writer, map[string]any{"count": count}); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(writer, "Successfully deleted %d expired rate limit bucket(s)\n", count)
	}

	logger.Info("cleanup completed", slog.Int64("count", count))

	return nil
}
