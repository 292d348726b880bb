package apierrors

import (
	"fmt"
	"net/http"
)

// Machine-readable error codes carried in the response envelope.
const (
	CodeForbiddenOrigin  = "forbidden_origin"
	CodeInvalidRequest   = "invalid_request"
	CodePayloadTooLarge  = "payload_too_large"
	CodeAgeRequired      = "age_required"
	CodePrivacyRequired  = "privacy_required"
	CodeRateLimited      = "rate_limited"
	CodeBotSuspected     = "bot_suspected"
	CodeUnauthorized     = "unauthorized"
	CodeForbidden        = "forbidden"
	CodeNotFound         = "not_found"
	CodeMethodNotAllowed = "method_not_allowed"
	CodeAlreadyProcessed = "already_processed"
	CodeServerError      = "server_error"
)

// APIError pairs an HTTP status with the wire error code. Handlers never
// build these directly; MapError converts processor sentinels.
type APIError struct {
	StatusCode int
	Code       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Code)
}

// New creates an APIError with an explicit status and code
func New(statusCode int, code string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code}
}

// BadRequest creates a 400 error
func BadRequest(code string) *APIError {
	return New(http.StatusBadRequest, code)
}

// Unauthorized creates a 401 error
func Unauthorized() *APIError {
	return New(http.StatusUnauthorized, CodeUnauthorized)
}

// Forbidden creates a 403 error
func Forbidden(code string) *APIError {
	return New(http.StatusForbidden, code)
}

// NotFound creates a 404 error
func NotFound() *APIError {
	return New(http.StatusNotFound, CodeNotFound)
}

// PayloadTooLarge creates a 413 error
func PayloadTooLarge() *APIError {
	return New(http.StatusRequestEntityTooLarge, CodePayloadTooLarge)
}

// UnsupportedMedia creates a 415 error. The wire code stays invalid_request;
// the status distinguishes the content-type failure.
func UnsupportedMedia() *APIError {
	return New(http.StatusUnsupportedMediaType, CodeInvalidRequest)
}

// TooManyRequests creates a 429 error
func TooManyRequests() *APIError {
	return New(http.StatusTooManyRequests, CodeRateLimited)
}

// InternalError creates a sanitized 500 error - internal details never reach the client
func InternalError() *APIError {
	return New(http.StatusInternalServerError, CodeServerError)
}
