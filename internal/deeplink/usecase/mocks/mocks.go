// Package mocks provides mock implementations of the deep-link use case
// collaborators for testing.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/easymo/deeplinks/internal/deeplink/domain"
)

// MockTokenRepository is a mock implementation of TokenRepository.
type MockTokenRepository struct {
	mock.Mock
}

// Create mocks the Create method.
func (m *MockTokenRepository) Create(ctx context.Context, record *domain.TokenRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// GetByToken mocks the GetByToken method.
func (m *MockTokenRepository) GetByToken(ctx context.Context, token string) (*domain.TokenRecord, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TokenRecord), args.Error(1)
}

// Claim mocks the Claim method.
func (m *MockTokenRepository) Claim(ctx context.Context, id uuid.UUID, consumedBy string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, consumedBy, at)
	return args.Bool(0), args.Error(1)
}

// DeleteExpired mocks the DeleteExpired method.
func (m *MockTokenRepository) DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

// CountExpired mocks the CountExpired method.
func (m *MockTokenRepository) CountExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

// MockAuditEventRepository is a mock implementation of AuditEventRepository.
type MockAuditEventRepository struct {
	mock.Mock
}

// Create mocks the Create method.
func (m *MockAuditEventRepository) Create(ctx context.Context, event *domain.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// DeleteOlderThan mocks the DeleteOlderThan method.
func (m *MockAuditEventRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// CountOlderThan mocks the CountOlderThan method.
func (m *MockAuditEventRepository) CountOlderThan(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// MockSessionRepository is a mock implementation of SessionRepository.
type MockSessionRepository struct {
	mock.Mock
}

// Upsert mocks the Upsert method.
func (m *MockSessionRepository) Upsert(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

// MockFlagRepository is a mock implementation of FlagRepository.
type MockFlagRepository struct {
	mock.Mock
}

// Get mocks the Get method.
func (m *MockFlagRepository) Get(ctx context.Context, key string) (bool, bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Bool(1), args.Error(2)
}

// MockFlagGate is a mock implementation of FlagGate.
type MockFlagGate struct {
	mock.Mock
}

// IsEnabled mocks the IsEnabled method.
func (m *MockFlagGate) IsEnabled(ctx context.Context, flow domain.Flow) (bool, error) {
	args := m.Called(ctx, flow)
	return args.Bool(0), args.Error(1)
}

// MockTxManager is a mock implementation of database.TxManager that runs fn
// inline after recording the call.
type MockTxManager struct {
	mock.Mock
}

// WithTx records the call and runs fn unless an error is configured.
func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}

// MockMaintenanceUseCase is a mock implementation of MaintenanceUseCase.
type MockMaintenanceUseCase struct {
	mock.Mock
}

// CleanupExpiredTokens mocks the CleanupExpiredTokens method.
func (m *MockMaintenanceUseCase) CleanupExpiredTokens(ctx context.Context, days int, dryRun bool) (int64, error) {
	args := m.Called(ctx, days, dryRun)
	return args.Get(0).(int64), args.Error(1)
}

// CleanupEvents mocks the CleanupEvents method.
func (m *MockMaintenanceUseCase) CleanupEvents(ctx context.Context, days int, dryRun bool) (int64, error) {
	args := m.Called(ctx, days, dryRun)
	return args.Get(0).(int64), args.Error(1)
}

// PurgeRateLimitBuckets mocks the PurgeRateLimitBuckets method.
func (m *MockMaintenanceUseCase) PurgeRateLimitBuckets(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockRateLimitBucketPurger is a mock implementation of RateLimitBucketPurger.
type MockRateLimitBucketPurger struct {
	mock.Mock
}

// PurgeExpired mocks the PurgeExpired method.
func (m *MockRateLimitBucketPurger) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}
