// Package convoyerr defines the error taxonomy described in §7:
// NotFound, BadInput, Transient, Capacity, Protocol, and Fatal
// categories, so callers can classify an error without string
// matching — the Go realization of the source's thiserror-based
// CoreError/ApiError/WsError enums.
package convoyerr

import (
	"errors"
	"fmt"
)

// Category classifies an error per the taxonomy in §7.
type Category string

const (
	CategoryNotFound  Category = "NOT_FOUND"
	CategoryBadInput  Category = "BAD_INPUT"
	CategoryTransient Category = "TRANSIENT"
	CategoryCapacity  Category = "CAPACITY"
	CategoryProtocol  Category = "PROTOCOL"
	CategoryFatal     Category = "FATAL"
)

// Error wraps an underlying cause with a taxonomy category.
type Error struct {
	Category Category
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error in the given category.
func New(category Category, message string) *Error {
	return &Error{Category: category, Message: message}
}

// Wrap constructs an Error in the given category around cause.
func Wrap(category Category, message string, cause error) *Error {
	return &Error{Category: category, Message: message, Cause: cause}
}

// NotFound builds a NotFound-category error naming what (e.g. "drone",
// "mission", "waypoint") and id.
func NotFound(what, id string) *Error {
	return New(CategoryNotFound, fmt.Sprintf("%s not found: %s", what, id))
}

// BadInput builds a BadInput-category error.
func BadInput(message string) *Error {
	return New(CategoryBadInput, message)
}

// CategoryOf extracts the Category of err, if it (or something it
// wraps) is a *Error.
func CategoryOf(err error) (Category, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Category, true
	}
	return "", false
}

// IsNotFound reports whether err is (or wraps) a NotFound-category error.
func IsNotFound(err error) bool {
	cat, ok := CategoryOf(err)
	return ok && cat == CategoryNotFound
}
