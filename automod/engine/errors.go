package engine

import (
	"context"
	"errors"
	"fmt"
)

// The platform refused an action, because of role hierarchy or missing bot permissions.
type PermissionError struct {
	Op  string
	Err error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s: permission denied: %v", e.Op, e.Err)
}

func (e *PermissionError) Unwrap() error {
	return e.Err
}

// The target message or user no longer exists on the platform.
type NotFoundError struct {
	Op  string
	Err error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: not found: %v", e.Op, e.Err)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// The case ledger or warning store could not be read or written.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: persistence failure: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Malformed command arguments. Always returned before any state is mutated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

func IsNotFoundError(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// short label for metrics
func errorKind(err error) string {
	switch {
	case IsPermissionError(err):
		return "permission"
	case IsNotFoundError(err):
		return "not_found"
	case IsPersistenceError(err):
		return "persistence"
	case IsValidationError(err):
		return "validation"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "other"
	}
}
