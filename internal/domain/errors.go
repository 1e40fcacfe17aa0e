package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTodoNotFound is returned when no row matches the requested id.
var ErrTodoNotFound = errors.New("todo not found")

// ValidationError reports a request payload that violates the record schema.
type ValidationError struct {
	Problems []string
}

func NewValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

// StoreError wraps a failure of the underlying database. Op names the
// operation in progress, e.g. "creating todo".
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
