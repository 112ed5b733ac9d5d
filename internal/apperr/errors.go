// Package apperr holds the errors that cross the service/HTTP boundary.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidDate   = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidNumber = errors.New("invalid number")
)

// NonFieldErrors is the key used for validation failures that are not tied to
// a single input field.
const NonFieldErrors = "non_field_errors"

// ValidationError is a field-keyed set of validation messages.
type ValidationError struct {
	Fields map[string]string
}

func NewValidation(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)

	return v
}

func (v *ValidationError) Add(field, message string) {
	if v.Fields == nil {
		v.Fields = make(map[string]string)
	}

	if _, exists := v.Fields[field]; exists {
		return
	}

	v.Fields[field] = message
}

func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.Fields) > 0
}

// OrNil returns nil when nothing was collected, so callers can return it
// directly as an error.
func (v *ValidationError) OrNil() error {
	if !v.HasErrors() {
		return nil
	}

	return v
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for key := range v.Fields {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+v.Fields[key])
	}

	return "validation failed: " + strings.Join(parts, "; ")
}

// Forbidden wraps ErrForbidden with a message safe to show to the caller.
func Forbidden(message string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, message)
}

// NotFound wraps ErrNotFound with the missing resource name.
func NotFound(resource string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, resource)
}

// Message strips the sentinel prefix added by Forbidden and NotFound.
func Message(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{ErrForbidden, ErrNotFound, ErrUnauthorized} {
		msg = strings.TrimPrefix(msg, sentinel.Error()+": ")
	}

	return msg
}
