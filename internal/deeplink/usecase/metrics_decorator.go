package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/easymo/deeplinks/internal/deeplink/domain"
	"github.com/easymo/deeplinks/internal/metrics"
)

const metricsDomain = "deeplink"

func observe(ctx context.Context, m metrics.BusinessMetrics, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	var limited *domain.RateLimitError
	if errors.As(err, &limited) {
		m.RecordRateLimited(ctx, operation+":"+limited.Scope)
	}

	m.RecordOperation(ctx, metricsDomain, operation, status)
	m.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// issueUseCaseWithMetrics decorates IssueUseCase with metrics instrumentation.
type issueUseCaseWithMetrics struct {
	next    IssueUseCase
	metrics metrics.BusinessMetrics
}

// NewIssueUseCaseWithMetrics wraps an IssueUseCase with metrics recording.
func NewIssueUseCaseWithMetrics(useCase IssueUseCase, m metrics.BusinessMetrics) IssueUseCase {
	return &issueUseCaseWithMetrics{next: useCase, metrics: m}
}

// Issue records metrics for token issuance.
func (i *issueUseCaseWithMetrics) Issue(ctx context.Context, input *domain.IssueInput) (*domain.IssueOutput, error) {
	start := time.Now()
	output, err := i.next.Issue(ctx, input)
	observe(ctx, i.metrics, "issue", start, err)
	return output, err
}

// resolveUseCaseWithMetrics decorates ResolveUseCase with metrics instrumentation.
type resolveUseCaseWithMetrics struct {
	next    ResolveUseCase
	metrics metrics.BusinessMetrics
}

// NewResolveUseCaseWithMetrics wraps a ResolveUseCase with metrics recording.
func NewResolveUseCaseWithMetrics(useCase ResolveUseCase, m metrics.BusinessMetrics) ResolveUseCase {
	return &resolveUseCaseWithMetrics{next: useCase, metrics: m}
}

// Resolve records metrics for token previews, including rate-limit rejections.
func (r *resolveUseCaseWithMetrics) Resolve(
	ctx context.Context,
	input *domain.ResolveInput,
) (*domain.ResolveOutput, error) {
	start := time.Now()
	output, err := r.next.Resolve(ctx, input)
	observe(ctx, r.metrics, "resolve", start, err)
	return output, err
}

// bootstrapUseCaseWithMetrics decorates BootstrapUseCase with metrics instrumentation.
type bootstrapUseCaseWithMetrics struct {
	next    BootstrapUseCase
	metrics metrics.BusinessMetrics
}

// NewBootstrapUseCaseWithMetrics wraps a BootstrapUseCase with metrics recording.
func NewBootstrapUseCaseWithMetrics(useCase BootstrapUseCase, m metrics.BusinessMetrics) BootstrapUseCase {
	return &bootstrapUseCaseWithMetrics{next: useCase, metrics: m}
}

// Bootstrap records metrics for token activations, including rate-limit rejections.
func (b *bootstrapUseCaseWithMetrics) Bootstrap(
	ctx context.Context,
	input *domain.BootstrapInput,
) (*domain.BootstrapOutput, error) {
	start := time.Now()
	output, err := b.next.Bootstrap(ctx, input)
	observe(ctx, b.metrics, "bootstrap", start, err)
	return output, err
}
