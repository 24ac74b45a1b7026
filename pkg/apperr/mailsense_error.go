// Package apperr defines the structured application error type and the
// error codes used across the pipeline and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Auth errors
	CodeUnauthorized = "UNAUTHORIZED"
	CodeInvalidToken = "INVALID_TOKEN"
	CodeForbidden    = "FORBIDDEN"

	// Validation errors
	CodeBadRequest   = "BAD_REQUEST"
	CodeInvalidInput = "INVALID_INPUT"

	// Resource errors
	CodeNotFound = "NOT_FOUND"
	CodeConflict = "CONFLICT"

	// Pipeline errors
	CodeLabelConflict         = "LABEL_CONFLICT"          // label created concurrently between list and create
	CodeProviderError         = "PROVIDER_ERROR"          // mail-service call failed
	CodeClassifierUnavailable = "CLASSIFIER_UNAVAILABLE"  // zero-shot collaborator missing or erroring
	CodeCategoryFetchFailed   = "CATEGORY_FETCH_FAILED"   // one source category could not be listed
	CodeNoMessages            = "NO_MESSAGES"             // mailbox category is empty

	// Internal errors
	CodeInternalError = "INTERNAL_ERROR"
	CodeConfigError   = "CONFIG_ERROR"
)

// AppError represents a structured application error.
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Status  int            `json:"-"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// HTTPStatus returns the HTTP status code.
func (e *AppError) HTTPStatus() int {
	return e.Status
}

// Constructor functions

func New(code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

func Wrap(err error, code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Err: err}
}

func Unauthorized(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return &AppError{Code: CodeUnauthorized, Message: message, Status: http.StatusUnauthorized}
}

func InvalidToken(message string) *AppError {
	return &AppError{Code: CodeInvalidToken, Message: message, Status: http.StatusUnauthorized}
}

func BadRequest(message string) *AppError {
	return &AppError{Code: CodeBadRequest, Message: message, Status: http.StatusBadRequest}
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
	}
}

func Conflict(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message, Status: http.StatusConflict}
}

// LabelConflict marks a create-label race: the label name came into existence
// between the lookup and the create call.
func LabelConflict(name string, err error) *AppError {
	return &AppError{
		Code:    CodeLabelConflict,
		Message: fmt.Sprintf("label %q created concurrently", name),
		Status:  http.StatusConflict,
		Details: map[string]any{"label": name},
		Err:     err,
	}
}

// ProviderError wraps a mail-service collaborator failure.
func ProviderError(operation string, err error) *AppError {
	return &AppError{
		Code:    CodeProviderError,
		Message: fmt.Sprintf("mail provider error: %s", operation),
		Status:  http.StatusBadGateway,
		Details: map[string]any{"operation": operation},
		Err:     err,
	}
}

// ClassifierUnavailable marks the zero-shot collaborator as unusable. The
// pipeline recovers from this locally; it reaches HTTP only on direct
// analysis endpoints.
func ClassifierUnavailable(err error) *AppError {
	return &AppError{
		Code:    CodeClassifierUnavailable,
		Message: "intent classifier unavailable",
		Status:  http.StatusServiceUnavailable,
		Err:     err,
	}
}

// CategoryFetchFailed marks a listing failure for one source category.
func CategoryFetchFailed(category string, err error) *AppError {
	return &AppError{
		Code:    CodeCategoryFetchFailed,
		Message: fmt.Sprintf("failed to list category %s", category),
		Status:  http.StatusBadGateway,
		Details: map[string]any{"category": category},
		Err:     err,
	}
}

func NoMessages(category string) *AppError {
	return &AppError{
		Code:    CodeNoMessages,
		Message: fmt.Sprintf("no messages found in %s", category),
		Status:  http.StatusNotFound,
		Details: map[string]any{"category": category},
	}
}

func Internal(message string) *AppError {
	if message == "" {
		message = "internal server error"
	}
	return &AppError{Code: CodeInternalError, Message: message, Status: http.StatusInternalServerError}
}

func InternalWithError(err error) *AppError {
	return &AppError{
		Code:    CodeInternalError,
		Message: "internal server error",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func ConfigError(message string) *AppError {
	return &AppError{Code: CodeConfigError, Message: message, Status: http.StatusInternalServerError}
}

// Helper functions

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalWithError(err)
}

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
