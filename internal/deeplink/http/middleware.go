package http

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/easymo/deeplinks/internal/deeplink/domain"
	apperrors "github.com/easymo/deeplinks/internal/errors"
	"github.com/easymo/deeplinks/internal/httputil"
	"github.com/easymo/deeplinks/internal/ratelimit"
)

// APIKeyMiddleware requires "Authorization: Bearer <key>" matching apiKey.
// An empty apiKey disables the check so local deployments can run without
// credentials. The bearer prefix is matched case-insensitively.
func APIKeyMiddleware(apiKey string, logger *slog.Logger) gin.HandlerFunc {
	if apiKey == "" {
		return func(c *gin.Context) { c.Next() }
	}
	expected := []byte(apiKey)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		const bearerPrefix = "bearer "
		if len(authHeader) < len(bearerPrefix) ||
			!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			logger.Debug("api key check failed: missing or malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		provided := []byte(authHeader[len(bearerPrefix):])
		if subtle.ConstantTimeCompare(provided, expected) != 1 {
			logger.Debug("api key check failed: key mismatch", slog.String("client_ip", c.ClientIP()))
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}

// issueLimiterStore holds per-IP token buckets for the issue endpoint.
type issueLimiterStore struct {
	limiters sync.Map // map[string]*issueLimiterEntry
	rps      float64
	burst    int
}

type issueLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
	mu         sync.Mutex
}

// IssueRateLimitMiddleware enforces a per-IP token bucket on POST /issue.
//
// Stale limiters are swept every five minutes until ctx is cancelled, so the
// caller owns the sweeper's lifetime. Rejected requests get 429 rate_limited
// with a Retry-After header.
func IssueRateLimitMiddleware(ctx context.Context, rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	store := &issueLimiterStore{
		rps:   rps,
		burst: burst,
	}

	go store.cleanupStale(ctx, 5*time.Minute, time.Hour)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		limiter := store.getLimiter(clientIP)

		if !limiter.Allow() {
			reservation := limiter.Reserve()
			delay := reservation.Delay()
			reservation.Cancel()

			logger.Debug("issue rate limit exceeded",
				slog.String("client_ip", clientIP),
				slog.Duration("retry_after", delay))

			httputil.HandleErrorGin(c, domain.NewRateLimitError(domain.ScopeIP, ratelimit.Result{
				Limit:      burst,
				RetryAfter: delay,
			}), logger)
			c.Abort()
			return
		}

		c.Next()
	}
}

func (s *issueLimiterStore) getLimiter(ip string) *rate.Limiter {
	if val, ok := s.limiters.Load(ip); ok {
		entry := val.(*issueLimiterEntry)
		entry.mu.Lock()
		entry.lastAccess = time.Now()
		entry.mu.Unlock()
		return entry.limiter
	}

	entry := &issueLimiterEntry{
		limiter:    rate.NewLimiter(rate.Limit(s.rps), s.burst),
		lastAccess: time.Now(),
	}
	actual, _ := s.limiters.LoadOrStore(ip, entry)
	return actual.(*issueLimiterEntry).limiter
}

// cleanupStale removes limiters idle for longer than maxIdle.
func (s *issueLimiterStore) cleanupStale(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(time.Now().Add(-maxIdle))
		}
	}
}

func (s *issueLimiterStore) sweep(threshold time.Time) int {
	removed := 0
	s.limiters.Range(func(key, value any) bool {
		entry := value.(*issueLimiterEntry)
		entry.mu.Lock()
		stale := entry.lastAccess.Before(threshold)
		entry.mu.Unlock()

		if stale {
			s.limiters.Delete(key)
			removed++
		}
		return true
	})
	return removed
}
