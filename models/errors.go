package models

import "fmt"

// ValidationError marks caller-correctable input problems. Surfaced as 400
// with a user-facing message; nothing has been mutated when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// UnknownProductError is returned when a product key has no catalog entry
// or no configured external price reference.
type UnknownProductError struct {
	Key ProductKey
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("unknown product: %s", e.Key)
}

// SignatureVerificationError marks an inbound webhook payload that failed
// signature verification. The payload is untrusted and must not be applied.
type SignatureVerificationError struct {
	Err error
}

func (e *SignatureVerificationError) Error() string {
	return fmt.Sprintf("webhook signature verification failed: %v", e.Err)
}

func (e *SignatureVerificationError) Unwrap() error { return e.Err }

// ProviderError wraps a failed call to the external payment provider.
// The caller may retry the whole checkout attempt.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payment provider %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed durable-store operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
