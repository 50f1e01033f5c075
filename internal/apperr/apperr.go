// Package apperr defines the error taxonomy shared by every app-facing
// endpoint. Each error carries a stable machine-readable code and the HTTP
// status it maps to, so transport-level rendering stays in one place.
package apperr

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Error is an API-visible failure. Details are debug-only payload and must
// never be parsed by clients.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Details any    `json:"details,omitempty"`
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

// Codes reused across handlers. Endpoint-specific codes (INVALID_ARMY_ID and
// the like) are created ad hoc with the matching constructor.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeRateLimited  = "RATE_LIMIT_EXCEEDED"
	CodeInternal     = "INTERNAL_ERROR"
)

// Validation maps to 422.
func Validation(code, message string, details any) *Error {
	return &Error{Code: code, Message: message, Status: http.StatusUnprocessableEntity, Details: details}
}

// BadRequest maps to 400; used for malformed path and query identifiers.
func BadRequest(code, message string) *Error {
	return &Error{Code: code, Message: message, Status: http.StatusBadRequest}
}

// Unauthorized maps to 401.
func Unauthorized(code, message string) *Error {
	return &Error{Code: code, Message: message, Status: http.StatusUnauthorized}
}

// Forbidden maps to 403.
func Forbidden(code, message string) *Error {
	return &Error{Code: code, Message: message, Status: http.StatusForbidden}
}

// NotFound maps to 404.
func NotFound(code, message string) *Error {
	return &Error{Code: code, Message: message, Status: http.StatusNotFound}
}

// RateLimited maps to 429.
func RateLimited(message string) *Error {
	return &Error{Code: CodeRateLimited, Message: message, Status: http.StatusTooManyRequests}
}

// Internal maps to 500.
func Internal(code, message string, details any) *Error {
	return &Error{Code: code, Message: message, Status: http.StatusInternalServerError, Details: details}
}

// Classify turns an arbitrary error into an *Error. Already-classified errors
// pass through; validator failures become validation errors; anything else is
// reported as internal with the raw text tucked into details.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details := make([]map[string]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			details = append(details, map[string]string{
				"field": fe.Field(),
				"rule":  fe.Tag(),
			})
		}
		return Validation(CodeValidation, "Request validation failed", details)
	}
	return Internal(CodeInternal, "An unexpected error occurred", map[string]any{
		"error": err.Error(),
	})
}
