package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockBusinessMetrics is a mock implementation of metrics.BusinessMetrics.
type MockBusinessMetrics struct {
	mock.Mock
}

// RecordOperation mocks the RecordOperation method.
func (m *MockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

// RecordDuration mocks the RecordDuration method.
func (m *MockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

// RecordTokenEvent mocks the RecordTokenEvent method.
func (m *MockBusinessMetrics) RecordTokenEvent(ctx context.Context, flow, kind string) {
	m.Called(ctx, flow, kind)
}

// RecordRateLimited mocks the RecordRateLimited method.
func (m *MockBusinessMetrics) RecordRateLimited(ctx context.Context, scope string) {
	m.Called(ctx, scope)
}

// RecordAuditDropped mocks the RecordAuditDropped method.
func (m *MockBusinessMetrics) RecordAuditDropped(ctx context.Context, reason string) {
	m.Called(ctx, reason)
}
