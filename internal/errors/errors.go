package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// Error codes carried in the error_code extension of problem responses.
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeNotFound          = "NOT_FOUND"
	CodePayloadTooLarge   = "PAYLOAD_TOO_LARGE"
	CodeUnsupportedMedia  = "UNSUPPORTED_MEDIA_TYPE"
	CodeNoValidData       = "NO_VALID_DATA"
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	CodeRequestTimeout    = "REQUEST_TIMEOUT"
	CodeInternal          = "INTERNAL_SERVER_ERROR"
	CodeWebSocketUpgrade  = "WEBSOCKET_UPGRADE_FAILED"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError represents validation errors
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details any) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Predefined error types for common scenarios
var (
	// 400 Bad Request
	ErrInvalidRequest   = New(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format")
	ErrValidationFailed = New(http.StatusBadRequest, CodeValidationFailed, "Request validation failed")

	// 404 Not Found
	ErrNotFound = New(http.StatusNotFound, CodeNotFound, "Resource not found")

	// 413 / 415
	ErrPayloadTooLarge  = New(http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Request body exceeds the maximum allowed size")
	ErrUnsupportedMedia = New(http.StatusUnsupportedMediaType, CodeUnsupportedMedia, "Unsupported media type")

	// 429 Too Many Requests
	ErrRateLimitExceeded = New(http.StatusTooManyRequests, CodeRateLimitExceeded, "Rate limit exceeded")

	// 500 Internal Server Error
	ErrInternalServer   = New(http.StatusInternalServerError, CodeInternal, "Internal server error")
	ErrWebSocketUpgrade = New(http.StatusInternalServerError, CodeWebSocketUpgrade, "WebSocket upgrade failed")
)

// InvalidRequestWithError creates an invalid request error with details
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format", err.Error())
}

// ErrValidation creates a validation error with field details
func ErrValidation(field, message string) *APIError {
	return NewValidationErrors([]ValidationError{{Field: field, Message: message}})
}

// ValidationErrors represents multiple validation errors
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// NewValidationErrors creates validation errors from multiple fields
func NewValidationErrors(errors []ValidationError) *APIError {
	return NewWithDetails(
		http.StatusBadRequest,
		CodeValidationFailed,
		"Request validation failed",
		ValidationErrors{Errors: errors},
	)
}

// NoValidData reports an upload from which nothing could be imported.
// failures lists the per-file reasons and is returned to the client as details.
func NoValidData(message string, failures any) *APIError {
	return NewWithDetails(http.StatusUnprocessableEntity, CodeNoValidData, message, failures)
}

// PayloadTooLarge creates a 413 error naming the limit that was exceeded.
func PayloadTooLarge(limit int64) *APIError {
	return NewWithDetails(http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
		fmt.Sprintf("Request body exceeds the maximum of %d bytes", limit),
		map[string]int64{"max_bytes": limit})
}

// PanicRecovery represents panic recovery information
type PanicRecovery struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// ErrPanic creates a panic recovery error
func ErrPanic(rec any) *APIError {
	return NewWithDetails(
		http.StatusInternalServerError,
		CodeInternal,
		"Internal server error",
		PanicRecovery{Message: fmt.Sprintf("%v", rec)},
	)
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(err *APIError) *ErrorResponse {
	return &ErrorResponse{
		Success: false,
		Error:   err,
	}
}

// Render implements the render.Renderer interface
func (e *ErrorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return e.Error.Render(w, r)
}

// WriteError writes an error response without going through chi/render.
// Used by the WebSocket upgrade path where no render context exists.
func WriteError(w http.ResponseWriter, err *APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	json.NewEncoder(w).Encode(NewErrorResponse(err))
}
