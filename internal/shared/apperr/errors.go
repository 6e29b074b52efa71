// Package apperr defines the error kinds shared by the portfolio engine and
// the helpers used to classify them at the HTTP boundary.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrExtraction  = errors.New("extraction failure")
	ErrPersistence = errors.New("persistence failure")
)

// Error attaches a kind and the failing operation to an underlying error.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Op == "":
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Wrap classifies err under kind. A nil err yields nil.
func Wrap(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Validation builds a validation error with a plain message.
func Validation(op, msg string) error {
	return &Error{Kind: ErrValidation, Op: op, Err: errors.New(msg)}
}

// NotFound builds a not-found error with a plain message.
func NotFound(op, msg string) error {
	return &Error{Kind: ErrNotFound, Op: op, Err: errors.New(msg)}
}

// Conflict builds a conflict error with a plain message.
func Conflict(op, msg string) error {
	return &Error{Kind: ErrConflict, Op: op, Err: errors.New(msg)}
}

// Code maps an error to the stable code used in API error bodies.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrExtraction):
		return "extraction_failed"
	case errors.Is(err, ErrPersistence):
		return "storage_error"
	default:
		return "internal_error"
	}
}
