// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response helpers shared by all endpoints:
//
//   - fail() writes the standard error envelope and logs 5xx with request
//     context.
//   - failValidation() is fail() for 422 with per-field details.
//   - ok() writes a JSON success body.
//
// Example error response:
//
//	HTTP/1.1 422 Unprocessable Entity
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "validation_error",
//	  "message": "validation failed: from: must be E.164-like",
//	  "details": [{"field": "from", "reason": "must be E.164-like"}]
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-webhook-ingest/internal/domain"
	"github.com/tbourn/go-webhook-ingest/internal/http/middleware"
	"github.com/tbourn/go-webhook-ingest/internal/sysutil"
)

// ErrorResponse is the standard error envelope returned by all JSON endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"validation_error"`
	// Human-readable message
	Message string `json:"message" example:"validation failed"`
	// Per-field problems for validation errors
	Details []domain.FieldError `json:"details,omitempty"`
}

// fail aborts the request with a structured error and logs server-side errors.
func fail(c *gin.Context, status int, code, msg string) {
	abortWith(c, status, ErrorResponse{Code: code, Message: msg})
}

// failValidation aborts with 422 and the individual field errors of ve.
func failValidation(c *gin.Context, ve *domain.ValidationError) {
	abortWith(c, http.StatusUnprocessableEntity, ErrorResponse{
		Code:    ErrCodeValidation,
		Message: ve.Error(),
		Details: ve.Fields,
	})
}

func abortWith(c *gin.Context, status int, resp ErrorResponse) {
	resp.RequestID = sysutil.FirstNonEmpty(
		middleware.RequestIDFrom(c.Request.Context()),
		c.Writer.Header().Get("X-Request-ID"),
	)

	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", resp.Code).
			Str("message", resp.Message).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail() for router-level fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
