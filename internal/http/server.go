// Package http provides HTTP server implementation and request handlers.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/easymo/deeplinks/internal/config"
	"github.com/easymo/deeplinks/internal/database"
	deeplinkHTTP "github.com/easymo/deeplinks/internal/deeplink/http"
	"github.com/easymo/deeplinks/internal/metrics"
)

// Server represents the HTTP server serving the deep-link API.
type Server struct {
	db     *sql.DB
	server *http.Server
	logger *slog.Logger
	router *gin.Engine
}

// NewServer creates a new HTTP server. Call SetupRouter before Start.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter configures the Gin router with all routes and middleware.
// ctx bounds background work started by middleware, such as the issue rate
// limiter's sweeper.
func (s *Server) SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	deeplinkHandler *deeplinkHTTP.DeeplinkHandler,
	metricsProvider *metrics.Provider,
) {
	router := gin.New()

	// ClientIP keys the per-IP rate limits, so forwarding headers are only
	// honored from configured proxies.
	if err := router.SetTrustedProxies(cfg.TrustedProxyList()); err != nil {
		s.logger.Error("invalid TRUSTED_PROXIES, ignoring forwarding headers", slog.Any("error", err))
		_ = router.SetTrustedProxies(nil)
	}

	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, cfg.BaseURL, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if cfg.MetricsEnabled && metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	issueMiddleware := []gin.HandlerFunc{deeplinkHTTP.APIKeyMiddleware(cfg.IssuerAPIKey, s.logger)}
	if cfg.RateLimitIssueEnabled {
		issueMiddleware = append(issueMiddleware, deeplinkHTTP.IssueRateLimitMiddleware(
			ctx,
			cfg.RateLimitIssueRequestsPerSec,
			cfg.RateLimitIssueBurst,
			s.logger,
		))
	}

	router.POST("/issue", append(issueMiddleware, deeplinkHandler.IssueHandler)...)
	router.GET("/resolve", deeplinkHandler.ResolveHandler)
	router.POST("/bootstrap",
		deeplinkHTTP.APIKeyMiddleware(cfg.BootstrapAPIKey, s.logger),
		deeplinkHandler.BootstrapHandler,
	)

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports that the process is up.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can serve traffic. The database
// must answer a ping within two seconds.
func (s *Server) readinessHandler(c *gin.Context) {
	if s.db == nil || !database.Healthy(c.Request.Context(), s.db, 2*time.Second) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": "error"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"database": "ok"},
	})
}
