package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingField is matched by errors.Is against a ConfigError that reports
// at least one absent required field.
var ErrMissingField = errors.New("configuration missing required field")

// Problem is a single validation failure inside a configuration resource.
type Problem struct {
	// Field is the top-level key the problem refers to (may be empty)
	Field string

	// Message describes what is wrong with the field
	Message string

	missing bool
}

// String renders the problem as "field: message", or just the message when
// no field is attached.
func (p Problem) String() string {
	if p.Field == "" {
		return p.Message
	}
	return fmt.Sprintf("%s: %s", p.Field, p.Message)
}

// ConfigError represents a configuration error. It aggregates every problem
// found during validation so callers see all of them at once instead of
// fixing one field per run.
type ConfigError struct {
	problems []Problem
}

// NewConfigError creates a new configuration error with a single message
func NewConfigError(message string) *ConfigError {
	return &ConfigError{problems: []Problem{{Message: message}}}
}

// MissingFieldError creates a configuration error for an absent required field
func MissingFieldError(field string) *ConfigError {
	e := &ConfigError{}
	e.AddMissing(field)
	return e
}

// Add records a malformed field.
func (e *ConfigError) Add(field, message string) {
	e.problems = append(e.problems, Problem{Field: field, Message: message})
}

// Addf is Add with a format string.
func (e *ConfigError) Addf(field, format string, args ...interface{}) {
	e.Add(field, fmt.Sprintf(format, args...))
}

// AddMissing records a required field that is not present at all.
func (e *ConfigError) AddMissing(field string) {
	e.problems = append(e.problems, Problem{
		Field:   field,
		Message: fmt.Sprintf("the configuration should contain the field %q", field),
		missing: true,
	})
}

// Problems returns a copy of the recorded problems in the order they were added.
func (e *ConfigError) Problems() []Problem {
	out := make([]Problem, len(e.problems))
	copy(out, e.problems)
	return out
}

// MissingFields lists the required fields reported as absent.
func (e *ConfigError) MissingFields() []string {
	var fields []string
	for _, p := range e.problems {
		if p.missing {
			fields = append(fields, p.Field)
		}
	}
	return fields
}

// Err returns e as an error, or nil if nothing was recorded.
func (e *ConfigError) Err() error {
	if e == nil || len(e.problems) == 0 {
		return nil
	}
	return e
}

// Error returns the error message
func (e *ConfigError) Error() string {
	if len(e.problems) == 1 {
		return e.problems[0].String()
	}
	parts := make([]string, 0, len(e.problems))
	for _, p := range e.problems {
		parts = append(parts, p.String())
	}
	return fmt.Sprintf("%d configuration problems: %s", len(parts), strings.Join(parts, "; "))
}

// Is reports whether target is ErrMissingField and a missing field was recorded.
func (e *ConfigError) Is(target error) bool {
	if target != ErrMissingField {
		return false
	}
	return len(e.MissingFields()) > 0
}
