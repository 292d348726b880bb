package apierrors

import (
	"waitlist-server/internal/observability"

	"github.com/gin-gonic/gin"
)

// Package-level logger that uses context for observability
var logger = observability.NewLogger()

// ErrorResponse is the JSON envelope returned to API clients for errors.
type ErrorResponse struct {
	Status string `json:"status"`
	Code   string `json:"code"`
}

// RespondWithError converts the error to an APIError, logs correlation info
// and sends the sanitized envelope. The processor has already logged the
// detailed error; this entry carries the request_id for correlation.
func RespondWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	apiErr := MapError(err)

	ctx := observability.WithFields(c.Request.Context(),
		observability.Field{Key: "status_code", Value: apiErr.StatusCode},
		observability.Field{Key: "error_code", Value: apiErr.Code},
	)
	logger.Info(ctx, "API error response")

	c.JSON(apiErr.StatusCode, ErrorResponse{
		Status: "error",
		Code:   apiErr.Code,
	})
}

// Respond writes the envelope for a known status/code pair without going
// through error mapping. Used by middleware that rejects before any
// processor runs.
func Respond(c *gin.Context, statusCode int, code string) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Status: "error",
		Code:   code,
	})
}
