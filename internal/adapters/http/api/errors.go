package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for HTTP-layer failures.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrBadPayload       = errors.New("malformed payload")
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// Wrap annotates err with the failing operation.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// NewKind creates a new error of the given kind tagged with op.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind annotates err with both an operation and an error kind, so
// callers can match the kind with errors.Is while keeping the cause.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
