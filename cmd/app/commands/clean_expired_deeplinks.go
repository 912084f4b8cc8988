package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	deeplinkUseCase "github.com/easymo/deeplinks/internal/deeplink/usecase"
)

// RunCleanExpiredDeeplinks deletes token records that expired more than days ago.
// Supports dry-run mode to preview the count and both text/JSON output formats.
//
// Requirements: Database must be migrated and accessible.
func RunCleanExpiredDeeplinks(
	ctx context.Context,
	maintenanceUseCase deeplinkUseCase.MaintenanceUseCase,
	logger *slog.Logger,
	writer io.Writer,
	days int,
	dryRun bool,
	format string,
) error {
	if days < 0 {
		return fmt.Errorf("days must be a positive number, got: %d", days)
	}

	logger.Info("cleaning expired deep links",
		slog.Int("days", days),
		slog.Bool("dry_run", dryRun),
	)

	count, err := maintenanceUseCase.CleanupExpiredTokens(ctx, days, dryRun)
	if err != nil {
		return fmt.Errorf("failed to clean expired deep links: %w", err)
	}

	if format == "json" {
		if err := writeJSON(writer, map[string]any{"count": count, "days": days, "dry_run": dryRun}); err != nil {
			return err
		}
	} else if dryRun {
		_, _ = fmt.Fprintf(writer, "Dry-run mode: Would delete %d expired deep link(s) older than %d day(s)\n", count, days)
	} else {
		_, _ = fmt.Fprintf(writer, "Successfully deleted %d expired deep link(s) older than %d day(s)\n", count, days)
	}

	logger.Info("cleanup completed",
		slog.Int64("count", count),
		slog.Int("days", days),
		slog.Bool("dry_run", dryRun),
	)

	return nil
}
