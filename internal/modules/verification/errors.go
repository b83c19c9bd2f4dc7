package verification

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized  = errors.New("authentication required")
	ErrForbidden     = errors.New("not allowed to verify documents")
	ErrNotFound      = errors.New("document not found")
	ErrValidation    = errors.New("validation error")
	ErrInvalidAction = errors.New("invalid action")
	ErrDependency    = errors.New("dependency failure")
)

func dependencyError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrDependency, err)
}
