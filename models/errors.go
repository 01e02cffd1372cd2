package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ValidationError maps a request attribute to its messages.
type ValidationError struct {
	Errors map[string][]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: map[string][]string{field: {message}}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Errors))
	for k := range e.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Errors[k], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// BusinessRuleError is a human-readable rule violation detected before any
// write.
type BusinessRuleError struct {
	Message string
}

func NewBusinessRuleError(format string, args ...interface{}) *BusinessRuleError {
	return &BusinessRuleError{Message: fmt.Sprintf(format, args...)}
}

func (e *BusinessRuleError) Error() string { return e.Message }

type ForbiddenError struct {
	Message string
}

func NewForbiddenError(message string) *ForbiddenError {
	return &ForbiddenError{Message: message}
}

func (e *ForbiddenError) Error() string { return e.Message }

type NotFoundError struct {
	Resource string
}

func NewNotFoundError(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

// ProcessingError wraps a storage failure inside a transactional tree walk.
// The transaction has been rolled back when it is returned.
type ProcessingError struct {
	Err error
}

func (e *ProcessingError) Error() string { return "submission processing failed, rolled back" }
func (e *ProcessingError) Unwrap() error { return e.Err }

// IsDomainError reports whether err is one of the typed errors above, as
// opposed to an unexpected storage failure.
func IsDomainError(err error) bool {
	var (
		v *ValidationError
		b *BusinessRuleError
		f *ForbiddenError
		n *NotFoundError
		p *ProcessingError
	)
	return errors.As(err, &v) || errors.As(err, &b) || errors.As(err, &f) || errors.As(err, &n) || errors.As(err, &p)
}
