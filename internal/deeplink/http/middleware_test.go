package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProtectedRouter(middleware gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(middleware)
	router.POST("/issue", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})
	return router
}

func TestAPIKeyMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		apiKey         string
		header         string
		expectedStatus int
	}{
		{name: "Success_NoKeyConfigured", apiKey: "", header: "", expectedStatus: http.StatusCreated},
		{name: "Success_MatchingKey", apiKey: "s3cret", header: "Bearer s3cret", expectedStatus: http.StatusCreated},
		{name: "Success_CaseInsensitivePrefix", apiKey: "s3cret", header: "bEaReR s3cret", expectedStatus: http.StatusCreated},
		{name: "Error_MissingHeader", apiKey: "s3cret", header: "", expectedStatus: http.StatusUnauthorized},
		{name: "Error_WrongScheme", apiKey: "s3cret", header: "Basic s3cret", expectedStatus: http.StatusUnauthorized},
		{name: "Error_EmptyBearer", apiKey: "s3cret", header: "Bearer ", expectedStatus: http.StatusUnauthorized},
		{name: "Error_WrongKey", apiKey: "s3cret", header: "Bearer s3cres", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newProtectedRouter(APIKeyMiddleware(tt.apiKey, logger))

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/issue", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusUnauthorized {
				assert.JSONEq(t,
					`{"ok":false,"error":"unauthorized","message":"Authentication is required"}`,
					w.Body.String())
			}
		})
	}
}

func TestIssueRateLimitMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("Success_AllowsRequestsWithinBurst", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		t.Cleanup(cancel)
		router := newProtectedRouter(IssueRateLimitMiddleware(ctx, 10, 5, logger))

		for i := 0; i < 5; i++ {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/issue", nil))
			assert.Equal(t, http.StatusCreated, w.Code)
		}
	})

	t.Run("Error_BlocksRequestsExceedingBurst", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		t.Cleanup(cancel)
		router := newProtectedRouter(IssueRateLimitMiddleware(ctx, 0.5, 1, logger))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/issue", nil))
		require.Equal(t, http.StatusCreated, w.Code)

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/issue", nil))

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, retryAfter, 1)
		assert.Contains(t, w.Body.String(), `"error":"rate_limited"`)
		assert.Contains(t, w.Body.String(), `"scope":"ip"`)
	})

	t.Run("Success_IPsAreIndependent", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		t.Cleanup(cancel)
		router := newProtectedRouter(IssueRateLimitMiddleware(ctx, 0.5, 1, logger))

		first := httptest.NewRequest(http.MethodPost, "/issue", nil)
		first.RemoteAddr = "198.51.100.1:1234"
		second := httptest.NewRequest(http.MethodPost, "/issue", nil)
		second.RemoteAddr = "198.51.100.2:1234"

		w := httptest.NewRecorder()
		router.ServeHTTP(w, first)
		assert.Equal(t, http.StatusCreated, w.Code)

		w = httptest.NewRecorder()
		router.ServeHTTP(w, second)
		assert.Equal(t, http.StatusCreated, w.Code)
	})
}

func TestIssueLimiterStore_Sweep(t *testing.T) {
	store := &issueLimiterStore{rps: 1, burst: 1}
	store.getLimiter("198.51.100.1")
	store.getLimiter("198.51.100.2")

	stale, _ := store.limiters.Load("198.51.100.1")
	stale.(*issueLimiterEntry).lastAccess = time.Now().Add(-2 * time.Hour)

	removed := store.sweep(time.Now().Add(-time.Hour))

	assert.Equal(t, 1, removed)
	_, ok := store.limiters.Load("198.51.100.2")
	assert.True(t, ok)
}
