package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error taxonomy shared by the repository, service and handler layers.
// Callers classify with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("concurrent update conflict")
	ErrDuplicate         = errors.New("already exists")
	ErrStorage           = errors.New("storage failure")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
)

// ValidationError reports which request fields failed which rule.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// InvalidField is shorthand for a single-field ValidationError.
func InvalidField(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("validation failed (%s)", strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidArgument
}
