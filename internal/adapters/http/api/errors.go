package api

import (
	"errors"
	"fmt"
)

// ErrBadRequest marks malformed or incomplete client input.
var ErrBadRequest = errors.New("bad request")

// NewKind tags a sentinel with the operation that raised it.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags a sentinel and its cause with the operation.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
