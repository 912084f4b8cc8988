// Package mocks provides mock implementations for testing HTTP handlers.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/easymo/deeplinks/internal/deeplink/domain"
)

// MockIssueUseCase is a mock implementation of IssueUseCase for testing.
type MockIssueUseCase struct {
	mock.Mock
}

// Issue mocks the Issue method of IssueUseCase.
func (m *MockIssueUseCase) Issue(ctx context.Context, input *domain.IssueInput) (*domain.IssueOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IssueOutput), args.Error(1)
}

// MockResolveUseCase is a mock implementation of ResolveUseCase for testing.
type MockResolveUseCase struct {
	mock.Mock
}

// Resolve mocks the Resolve method of ResolveUseCase.
func (m *MockResolveUseCase) Resolve(ctx context.Context, input *domain.ResolveInput) (*domain.ResolveOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResolveOutput), args.Error(1)
}

// MockBootstrapUseCase is a mock implementation of BootstrapUseCase for testing.
type MockBootstrapUseCase struct {
	mock.Mock
}

// Bootstrap mocks the Bootstrap method of BootstrapUseCase.
func (m *MockBootstrapUseCase) Bootstrap(
	ctx context.Context,
	input *domain.BootstrapInput,
) (*domain.BootstrapOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BootstrapOutput), args.Error(1)
}
