// Package httputil provides HTTP utility functions for request and response handling.
package httputil

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/easymo/deeplinks/internal/errors"
	customValidation "github.com/easymo/deeplinks/internal/validation"
)

// ErrorResponse is the JSON envelope returned for every failed request.
type ErrorResponse struct {
	OK      bool           `json:"ok"`
	Error   string         `json:"error"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// retryAfter is implemented by errors that carry a Retry-After delay.
type retryAfter interface {
	RetryAfterSeconds() int
}

type kindMapping struct {
	kind    error
	status  int
	code    string
	message string
}

// kindMappings is ordered; the first matching kind wins.
var kindMappings = []kindMapping{
	{apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid_payload", "The request is invalid"},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "Authentication is required"},
	{apperrors.ErrForbidden, http.StatusForbidden, "forbidden", "You don't have permission to access this resource"},
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found", "The requested resource was not found"},
	{apperrors.ErrConflict, http.StatusConflict, "conflict", "A conflict occurred with existing data"},
	{apperrors.ErrGone, http.StatusGone, "gone", "The requested resource is no longer available"},
	{apperrors.ErrTooManyRequests, http.StatusTooManyRequests, "rate_limited", "Too many requests"},
}

// StatusFor returns the HTTP status code for err.
func StatusFor(err error) int {
	status, _ := mapError(err)
	return status
}

func mapError(err error) (int, ErrorResponse) {
	var coded *apperrors.CodedError
	hasCode := errors.As(err, &coded)

	// A coded error is classified by its own kind, not by its cause.
	classified := err
	if hasCode {
		classified = coded.Kind
	}

	for _, mapping := range kindMappings {
		if !apperrors.Is(classified, mapping.kind) {
			continue
		}
		response := ErrorResponse{Error: mapping.code, Message: mapping.message}
		if hasCode {
			response.Error = coded.Code
			response.Message = coded.Message
			response.Details = coded.Details
		}
		return mapping.status, response
	}

	// Internal failures never expose their cause; a coded internal error
	// still reports its stable code.
	response := ErrorResponse{Error: "internal_error", Message: "An internal error occurred"}
	if hasCode && apperrors.Is(classified, apperrors.ErrInternal) {
		response.Error = coded.Code
		response.Message = coded.Message
	}
	return http.StatusInternalServerError, response
}

// HandleErrorGin maps domain errors to HTTP status codes and writes the error
// envelope. Rate-limit errors also set the Retry-After header.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	statusCode, errorResponse := mapError(err)

	var limited retryAfter
	if statusCode == http.StatusTooManyRequests && errors.As(err, &limited) {
		c.Header("Retry-After", strconv.Itoa(limited.RetryAfterSeconds()))
	}

	if logger != nil {
		attrs := []any{
			slog.Int("status_code", statusCode),
			slog.String("error_code", errorResponse.Error),
			slog.Any("error", err),
		}
		if statusCode >= http.StatusInternalServerError {
			logger.Error("request failed", attrs...)
		} else {
			logger.Warn("request rejected", attrs...)
		}
	}

	c.JSON(statusCode, errorResponse)
}

// HandleBadRequestGin writes a 400 response for a body or query that could not
// be parsed.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("bad request", slog.Any("error", err))
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_payload",
		Message: err.Error(),
	})
}

// HandleValidationErrorGin writes a 400 response with per-field details for
// jellydator validation errors.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("validation failed", slog.Any("error", err))
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_payload",
		Message: "The request is invalid",
		Details: customValidation.FieldErrors(err),
	})
}
