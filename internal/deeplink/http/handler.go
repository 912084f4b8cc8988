// Package http provides HTTP handlers and middleware for the deep-link endpoints.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/easymo/deeplinks/internal/deeplink/domain"
	"github.com/easymo/deeplinks/internal/deeplink/http/dto"
	deeplinkUseCase "github.com/easymo/deeplinks/internal/deeplink/usecase"
	"github.com/easymo/deeplinks/internal/httputil"
	"github.com/easymo/deeplinks/internal/metrics"
)

// DeeplinkHandler handles HTTP requests for issuing, resolving and
// bootstrapping deep links.
type DeeplinkHandler struct {
	issueUseCase     deeplinkUseCase.IssueUseCase
	resolveUseCase   deeplinkUseCase.ResolveUseCase
	bootstrapUseCase deeplinkUseCase.BootstrapUseCase
	logger           *slog.Logger
}

// NewDeeplinkHandler creates a new deep-link handler with required dependencies.
func NewDeeplinkHandler(
	issueUseCase deeplinkUseCase.IssueUseCase,
	resolveUseCase deeplinkUseCase.ResolveUseCase,
	bootstrapUseCase deeplinkUseCase.BootstrapUseCase,
	logger *slog.Logger,
) *DeeplinkHandler {
	return &DeeplinkHandler{
		issueUseCase:     issueUseCase,
		resolveUseCase:   resolveUseCase,
		bootstrapUseCase: bootstrapUseCase,
		logger:           logger,
	}
}

// IssueHandler issues a signed deep link for a flow.
// POST /issue - Requires the issuer API key when one is configured.
// Returns 201 Created with the token, its URL and the stored payload.
func (h *DeeplinkHandler) IssueHandler(c *gin.Context) {
	var req dto.IssueRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	c.Set(metrics.FlowContextKey, req.Flow)

	output, err := h.issueUseCase.Issue(c.Request.Context(), req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapIssueOutput(output))
}

// ResolveHandler previews a deep link for the browser landing page.
// GET /resolve?t=<token> - Public, rate limited per client IP.
func (h *DeeplinkHandler) ResolveHandler(c *gin.Context) {
	query := dto.ResolveQuery{Token: c.Query("t")}
	if err := query.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	output, err := h.resolveUseCase.Resolve(c.Request.Context(), &domain.ResolveInput{
		Token:    query.Token,
		ClientIP: c.ClientIP(),
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.Set(metrics.FlowContextKey, string(output.Flow))

	c.JSON(http.StatusOK, dto.MapResolveOutput(output))
}

// BootstrapHandler activates a deep link inside the chat channel and returns
// the first prompt to send to the user.
// POST /bootstrap - Requires the bootstrap API key when one is configured.
func (h *DeeplinkHandler) BootstrapHandler(c *gin.Context) {
	var req dto.BootstrapRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	output, err := h.bootstrapUseCase.Bootstrap(c.Request.Context(), &domain.BootstrapInput{
		Token:      req.Token,
		UserMSISDN: req.UserMSISDN,
		ClientIP:   c.ClientIP(),
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.Set(metrics.FlowContextKey, string(output.Flow))

	c.JSON(http.StatusOK, dto.MapBootstrapOutput(output))
}
