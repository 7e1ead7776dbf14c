// Package errors holds the error taxonomy shared by every layer of the booking service.
// Services return *AppError values; handlers render them through httputil.WriteError.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeInvalidInput = "INVALID_INPUT"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeConflict     = "CONFLICT"
	CodeOverlap      = "DATE_OVERLAP"
	CodeInvalidState = "INVALID_STATE"
	CodeTooLate      = "TOO_LATE"
	CodeTimeout      = "TIMEOUT"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeInternal     = "INTERNAL_ERROR"
)

// statusByCode is the HTTP mapping used by the named constructors.
var statusByCode = map[string]int{
	CodeNotFound:     http.StatusNotFound,
	CodeValidation:   http.StatusUnprocessableEntity,
	CodeInvalidInput: http.StatusBadRequest,
	CodeUnauthorized: http.StatusUnauthorized,
	CodeForbidden:    http.StatusForbidden,
	CodeConflict:     http.StatusConflict,
	CodeOverlap:      http.StatusConflict,
	CodeInvalidState: http.StatusConflict,
	CodeTooLate:      http.StatusBadRequest,
	CodeTimeout:      http.StatusGatewayTimeout,
	CodeUnavailable:  http.StatusServiceUnavailable,
	CodeInternal:     http.StatusInternalServerError,
}

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// StatusCode falls back to 500 when the error was built without a status.
func (e *AppError) StatusCode() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	return http.StatusInternalServerError
}

func (e *AppError) ToJSON() []byte {
	data, _ := json.Marshal(e)
	return data
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus, Err: err}
}

func coded(code, message string) *AppError {
	return New(code, message, statusByCode[code])
}

func NotFound(resource string) *AppError {
	return coded(CodeNotFound, resource+" not found")
}

func NotFoundWithID(resource, id string) *AppError {
	return NotFound(resource).WithDetails(map[string]any{"resource": resource, "id": id})
}

func Validation(message string, details map[string]any) *AppError {
	return coded(CodeValidation, message).WithDetails(details)
}

func InvalidInput(message string) *AppError { return coded(CodeInvalidInput, message) }

func Unauthorized(message string) *AppError { return coded(CodeUnauthorized, message) }

func Forbidden(message string) *AppError { return coded(CodeForbidden, message) }

// Conflict reports concurrent modification of a resource. It is the only code retried by lock.Retry.
func Conflict(message string) *AppError { return coded(CodeConflict, message) }

// Overlap reports a date range colliding with committed calendar state.
func Overlap(message string) *AppError { return coded(CodeOverlap, message) }

// InvalidState rejects an operation the entity's current status does not allow.
func InvalidState(resource, current, operation string) *AppError {
	msg := fmt.Sprintf("cannot %s %s in status %s", operation, resource, current)
	return coded(CodeInvalidState, msg).WithDetails(map[string]any{
		"resource":  resource,
		"status":    current,
		"operation": operation,
	})
}

func TooLate(message string) *AppError { return coded(CodeTooLate, message) }

func Timeout(message string) *AppError { return coded(CodeTimeout, message) }

func Unavailable(service string) *AppError {
	return coded(CodeUnavailable, service+" is temporarily unavailable")
}

func Internal(message string, err error) *AppError {
	e := coded(CodeInternal, message)
	e.Err = err
	return e
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError unwraps err to its AppError, treating anything else as internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// HasCode reports whether err is, or wraps, an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
