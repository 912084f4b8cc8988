package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics defines the interface for recording business operation metrics.
type BusinessMetrics interface {
	// RecordOperation records a business operation with its status.
	// Domain examples: "deeplink", "maintenance"
	// Operation examples: "issue", "resolve", "bootstrap"
	// Status examples: "success", "error"
	RecordOperation(ctx context.Context, domain, operation, status string)

	// RecordDuration records the duration of a business operation with its status.
	// Duration is recorded in seconds as a histogram for percentile calculations.
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)

	// RecordTokenEvent counts audit events by flow and kind ("issued", "opened", ...).
	RecordTokenEvent(ctx context.Context, flow, kind string)

	// RecordRateLimited counts requests rejected by a rate-limit scope.
	RecordRateLimited(ctx context.Context, scope string)

	// RecordAuditDropped counts audit events that were never persisted.
	// Reason is "queue_full", "write_failed" or "closed".
	RecordAuditDropped(ctx context.Context, reason string)
}

// businessMetrics implements BusinessMetrics using OpenTelemetry metrics.
type businessMetrics struct {
	operationCounter   metric.Int64Counter
	durationHisto      metric.Float64Histogram
	tokenEventCounter  metric.Int64Counter
	rateLimitedCounter metric.Int64Counter
	auditDropCounter   metric.Int64Counter
}

// NewBusinessMetrics creates a new BusinessMetrics implementation using the provided meter provider.
// The namespace parameter is used as a prefix for all metric names (e.g., "deeplinks").
// Returns error if meters cannot be initialized.
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_operations_total", namespace),
		metric.WithDescription("Total number of business operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of business operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	tokenEventCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_token_events_total", namespace),
		metric.WithDescription("Total number of deep-link audit events by flow and kind"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token event counter: %w", err)
	}

	rateLimitedCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_rate_limited_total", namespace),
		metric.WithDescription("Total number of requests rejected by rate limiting"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limited counter: %w", err)
	}

	auditDropCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_audit_events_dropped_total", namespace),
		metric.WithDescription("Total number of audit events that were not persisted"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit drop counter: %w", err)
	}

	return &businessMetrics{
		operationCounter:   operationCounter,
		durationHisto:      durationHisto,
		tokenEventCounter:  tokenEventCounter,
		rateLimitedCounter: rateLimitedCounter,
		auditDropCounter:   auditDropCounter,
	}, nil
}

// RecordOperation increments the operation counter with domain, operation, and status labels.
func (b *businessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	b.operationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

// RecordDuration records the operation duration in seconds with domain, operation, and status labels.
func (b *businessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	b.durationHisto.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

// RecordTokenEvent increments the token event counter.
func (b *businessMetrics) RecordTokenEvent(ctx context.Context, flow, kind string) {
	b.tokenEventCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("flow", flow),
			attribute.String("kind", kind),
		),
	)
}

// RecordRateLimited increments the rate limited counter.
func (b *businessMetrics) RecordRateLimited(ctx context.Context, scope string) {
	b.rateLimitedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("scope", scope)))
}

// RecordAuditDropped increments the audit drop counter.
func (b *businessMetrics) RecordAuditDropped(ctx context.Context, reason string) {
	b.auditDropCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// NoOpBusinessMetrics is a no-op implementation of BusinessMetrics for when metrics are disabled.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics creates a no-op BusinessMetrics implementation.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return &NoOpBusinessMetrics{}
}

// RecordOperation does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {}

// RecordDuration does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
}

// RecordTokenEvent does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordTokenEvent(ctx context.Context, flow, kind string) {}

// RecordRateLimited does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordRateLimited(ctx context.Context, scope string) {}

// RecordAuditDropped does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordAuditDropped(ctx context.Context, reason string) {}
