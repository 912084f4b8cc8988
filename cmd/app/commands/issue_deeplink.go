package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/easymo/deeplinks/internal/deeplink/http/dto"
	deeplinkUseCase "github.com/easymo/deeplinks/internal/deeplink/usecase"
)

// RunIssueDeeplink issues a deep link from the command line, applying the same
// validation as POST /issue. Outputs the link in either text or JSON format.
//
// Requirements: Database must be migrated and accessible.
func RunIssueDeeplink(
	ctx context.Context,
	issueUseCase deeplinkUseCase.IssueUseCase,
	logger *slog.Logger,
	writer io.Writer,
	request *dto.IssueRequest,
	format string,
) error {
	if err := request.Validate(); err != nil {
		return fmt.Errorf("invalid deep link request: %w", err)
	}

	logger.Info("issuing deep link", slog.String("flow", request.Flow))

	output, err := issueUseCase.Issue(ctx, request.ToInput())
	if err != nil {
		return fmt.Errorf("failed to issue deep link: %w", err)
	}

	if format == "json" {
		if err := writeJSON(writer, dto.MapIssueOutput(output)); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintln(writer, "Deep link issued successfully")
		_, _ = fmt.Fprintf(writer, "Token ID:   %s\n", output.TokenID)
		_, _ = fmt.Fprintf(writer, "Flow:       %s\n", output.Flow)
		_, _ = fmt.Fprintf(writer, "URL:        %s\n", output.URL)
		_, _ = fmt.Fprintf(writer, "Expires At: %s\n", output.ExpiresAt.Format(time.RFC3339))
		if output.MSISDNBound != nil {
			_, _ = fmt.Fprintf(writer, "Bound To:   %s\n", *output.MSISDNBound)
		}
		_, _ = fmt.Fprintf(writer, "Multi-use:  %t\n", output.MultiUse)
	}

	logger.Info("deep link issued",
		slog.String("token_id", output.TokenID.String()),
		slog.String("flow", string(output.Flow)),
	)

	return nil
}
