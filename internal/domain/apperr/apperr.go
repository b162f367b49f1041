// Package apperr defines the error categories shared by the storefront
// services. Handlers map each category onto an HTTP status; the message of a
// ValidationError, ConflictError or NotFoundError is safe to show to clients,
// a PersistenceError never is.
package apperr

import "fmt"

// ValidationError reports malformed or incomplete input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Missing returns the ValidationError for an absent required field.
func Missing(field string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: "Missing required field: " + field,
	}
}

// ConflictError reports a request that is well-formed but violates a
// business rule, such as deleting a customer that still has orders.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// NotFoundError reports a missing resource.
type NotFoundError struct {
	Resource string
	ID       int64
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// PersistenceError wraps a storage failure. Its cause is for logs only.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
