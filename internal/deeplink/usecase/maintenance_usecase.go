package usecase

import (
	"context"

	apperrors "github.com/easymo/deeplinks/internal/errors"
)

// maintenanceUseCase implements MaintenanceUseCase.
type maintenanceUseCase struct {
	tokenRepo TokenRepository
	eventRepo AuditEventRepository
	purger    RateLimitBucketPurger
	cfg       Config
}

// CleanupExpiredTokens deletes token records that expired more than days ago.
func (m *maintenanceUseCase) CleanupExpiredTokens(ctx context.Context, days int, dryRun bool) (int64, error) {
	if days < 0 {
		return 0, apperrors.Wrap(apperrors.ErrInvalidInput, "days must be non-negative")
	}

	cutoff := m.cfg.now().AddDate(0, 0, -days)
	if dryRun {
		return m.tokenRepo.CountExpired(ctx, cutoff)
	}
	return m.tokenRepo.DeleteExpired(ctx, cutoff)
}

// CleanupEvents deletes audit events created more than days ago.
func (m *maintenanceUseCase) CleanupEvents(ctx context.Context, days int, dryRun bool) (int64, error) {
	if days < 0 {
		return 0, apperrors.Wrap(apperrors.ErrInvalidInput, "days must be non-negative")
	}

	cutoff := m.cfg.now().AddDate(0, 0, -days)
	if dryRun {
		return m.eventRepo.CountOlderThan(ctx, cutoff)
	}
	return m.eventRepo.DeleteOlderThan(ctx, cutoff)
}

// PurgeRateLimitBuckets deletes buckets whose window ended before now.
// In-memory limiters sweep themselves, so it fails without a shared store.
func (m *maintenanceUseCase) PurgeRateLimitBuckets(ctx context.Context) (int64, error) {
	if m.purger == nil {
		return 0, apperrors.Wrap(apperrors.ErrInvalidInput, "rate limit buckets are not stored in the database")
	}
	return m.purger.PurgeExpired(ctx, m.cfg.now())
}

// NewMaintenanceUseCase creates a new MaintenanceUseCase. purger may be nil
// when rate limits are kept in memory.
func NewMaintenanceUseCase(
	tokenRepo TokenRepository,
	eventRepo AuditEventRepository,
	purger RateLimitBucketPurger,
	cfg Config,
) MaintenanceUseCase {
	return &maintenanceUseCase{
		tokenRepo: tokenRepo,
		eventRepo: eventRepo,
		purger:    purger,
		cfg:       cfg.withDefaults(),
	}
}
