// Package apperr defines the typed failures returned by services and mapped to
// HTTP responses by internal/httpx.
package apperr

import "fmt"

type Kind int

const (
	KindUnauthorized Kind = iota + 1
	KindNotFound
	KindConflict
)

// Error is a business-rule failure with a stable code for API clients.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	// ErrUnauthorized covers both a missing session and an insufficient role.
	ErrUnauthorized = New(KindUnauthorized, "unauthorized", "unauthorized")
	ErrNotFound     = New(KindNotFound, "not_found", "resource not found")
)

// ValidationError is returned before any write when input is missing or malformed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
