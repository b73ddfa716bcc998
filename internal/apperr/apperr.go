// Package apperr carries HTTP-aware errors from handlers to the error handler.
package apperr

import (
	"fmt"
	"net/http"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Status  int
	Code    string
	Message string
	Fields  []FieldError
	// RetryAfter is in seconds and only set for 429 responses.
	RetryAfter int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func NotFound(what string) *Error {
	return New(http.StatusNotFound, "NOT_FOUND", what+" not found")
}

func Conflict(code, message string) *Error {
	return New(http.StatusConflict, code, message)
}

func Forbidden(message string) *Error {
	if message == "" {
		message = "access denied"
	}
	return New(http.StatusForbidden, "FORBIDDEN", message)
}

func Unauthorized(code, message string) *Error {
	return New(http.StatusUnauthorized, code, message)
}

func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, "BAD_REQUEST", message)
}

func Validation(fields []FieldError) *Error {
	return &Error{
		Status:  http.StatusUnprocessableEntity,
		Code:    "VALIDATION_ERROR",
		Message: "validation failed",
		Fields:  fields,
	}
}

func TooManyRequests(retryAfter int) *Error {
	return &Error{
		Status:     http.StatusTooManyRequests,
		Code:       "TOO_MANY_REQUESTS",
		Message:    "too many requests, try again later",
		RetryAfter: retryAfter,
	}
}
