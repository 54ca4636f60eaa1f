package models

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error codes returned in the "code" field of failed API responses
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeDepthExceeded  = "DEPTH_EXCEEDED"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeAlreadyDeleted = "ALREADY_DELETED"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeBadRequest     = "BAD_REQUEST"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// Sentinel errors. Every AppError wraps exactly one of these, so callers
// can branch with errors.Is without inspecting codes.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("resource not found")
	ErrDepthExceeded = errors.New("maximum reply depth exceeded")
	ErrPermission    = errors.New("permission denied")
	ErrRateLimited   = errors.New("rate limited")
	ErrUnauthorized  = errors.New("unauthorized access")
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrInternal      = errors.New("internal error")

	// ErrAlreadyDeleted is a permission failure: the comment exists but is
	// no longer Active, so its owner may not edit or delete it again.
	ErrAlreadyDeleted = fmt.Errorf("comment is not active: %w", ErrPermission)
)

// AppError carries a stable code, an HTTP status and optional per-field details
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	StatusCode int               `json:"status_code,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
	Err        error             `json:"-"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the sentinel for errors.Is
func (e *AppError) Unwrap() error {
	return e.Err
}

// ToHTTPError converts to HTTP-compatible error response
func (e *AppError) ToHTTPError() *APIResponse {
	return &APIResponse{
		Success:   false,
		Error:     e.Message,
		Code:      e.Code,
		Details:   e.Details,
		Timestamp: time.Now(),
	}
}

// NewValidationError reports an invalid input field
func NewValidationError(field, message string) *AppError {
	return &AppError{
		Code:       ErrCodeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Details:    map[string]string{field: message},
		Err:        ErrValidation,
	}
}

// NewFieldsValidationError reports several invalid fields at once
func NewFieldsValidationError(details map[string]string) *AppError {
	return &AppError{
		Code:       ErrCodeValidation,
		Message:    "request validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
		Err:        ErrValidation,
	}
}

// NewBadRequestError reports a request that could not be decoded at all
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:       ErrCodeBadRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        ErrValidation,
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:       ErrCodeNotFound,
		Message:    resource + " not found",
		StatusCode: http.StatusNotFound,
		Err:        ErrNotFound,
	}
}

func NewDepthExceededError(maxDepth int) *AppError {
	return &AppError{
		Code:       ErrCodeDepthExceeded,
		Message:    fmt.Sprintf("replies cannot be nested deeper than %d levels", maxDepth),
		StatusCode: http.StatusUnprocessableEntity,
		Err:        ErrDepthExceeded,
	}
}

func NewPermissionError(message string) *AppError {
	return &AppError{
		Code:       ErrCodeForbidden,
		Message:    message,
		StatusCode: http.StatusForbidden,
		Err:        ErrPermission,
	}
}

func NewAlreadyDeletedError(commentID int64) *AppError {
	return &AppError{
		Code:       ErrCodeAlreadyDeleted,
		Message:    fmt.Sprintf("comment %d is no longer active", commentID),
		StatusCode: http.StatusConflict,
		Err:        ErrAlreadyDeleted,
	}
}

func NewRateLimitError(message string) *AppError {
	return &AppError{
		Code:       ErrCodeRateLimited,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
		Err:        ErrRateLimited,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:       ErrCodeUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
		Err:        ErrUnauthorized,
	}
}

// NewInternalError hides the cause from clients but keeps it for logging
func NewInternalError(cause error) *AppError {
	return &AppError{
		Code:       ErrCodeInternal,
		Message:    "internal server error",
		StatusCode: http.StatusInternalServerError,
		Err:        fmt.Errorf("%w: %v", ErrInternal, cause),
	}
}

// AsAppError unwraps err into an AppError, if it is one
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// ErrorFromResponse rebuilds an AppError from a decoded failure envelope.
// Unknown codes map to an internal error.
func ErrorFromResponse(status int, code, message string, details map[string]string) *AppError {
	sentinels := map[string]error{
		ErrCodeValidation:     ErrValidation,
		ErrCodeBadRequest:     ErrValidation,
		ErrCodeNotFound:       ErrNotFound,
		ErrCodeDepthExceeded:  ErrDepthExceeded,
		ErrCodeForbidden:      ErrPermission,
		ErrCodeAlreadyDeleted: ErrAlreadyDeleted,
		ErrCodeRateLimited:    ErrRateLimited,
		ErrCodeUnauthorized:   ErrUnauthorized,
	}

	sentinel, ok := sentinels[code]
	if !ok {
		sentinel = ErrInternal
		if code == "" {
			code = ErrCodeInternal
		}
	}

	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: status,
		Details:    details,
		Err:        sentinel,
	}
}
