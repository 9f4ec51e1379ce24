package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInternal     = errors.New("internal error")
)

// WrapKind annotates cause with op and kind; errors.Is matches both.
func WrapKind(op string, kind, cause error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, cause)
}

// NewKind annotates kind with op.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}
