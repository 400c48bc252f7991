package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrEmptyDescription  = errors.New("empty description")
	ErrEmptyCategory     = errors.New("empty category")
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("already exists")
	ErrMissingConnection = errors.New("missing connection string")
	ErrConnectionClosed  = errors.New("connection manager closed")
)

// FieldError is a single violated rule on a named input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

func (e FieldError) Unwrap() error {
	return e.Err
}

// ValidationErrors collects every violated rule of one input.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the sentinel of each field error to errors.Is.
func (v ValidationErrors) Unwrap() []error {
	out := make([]error, len(v))
	for i, fe := range v {
		out[i] = fe
	}
	return out
}

// Fields returns the names of the violated fields in order.
func (v ValidationErrors) Fields() []string {
	out := make([]string, len(v))
	for i, fe := range v {
		out[i] = fe.Field
	}
	return out
}

func (v *ValidationErrors) add(field, message string, err error) {
	*v = append(*v, FieldError{Field: field, Message: message, Err: err})
}

// ConfigurationError reports required settings that are missing or invalid.
// It is fatal at startup.
type ConfigurationError struct {
	Problems []string
	Err      error
}

func (e *ConfigurationError) Error() string {
	if len(e.Problems) == 0 && e.Err != nil {
		return "configuration error: " + e.Err.Error()
	}
	return fmt.Sprintf("configuration validation failed:\n- %s", strings.Join(e.Problems, "\n- "))
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ConnectivityError reports that the backing store could not be reached.
type ConnectivityError struct {
	Backend string
	Timeout bool
	Err     error
}

func (e *ConnectivityError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("connect %s: timed out: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("connect %s: %v", e.Backend, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// StorageError wraps a failed persistence operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
