// Package apperr defines the error taxonomy shared by services and handlers.
//
// Three failure classes cover everything the core can report:
//   - ProviderError: a remote AI or job-search call failed
//   - NotFoundError: a referenced record is absent, or retrieval found nothing
//   - ValidationError: the caller sent malformed input
//
// All three work with errors.As, so handlers can map them to HTTP statuses
// without string matching.
package apperr

import (
	"errors"
	"fmt"
)

// ProviderError wraps a failed remote call (embedding, completion, job
// search). The underlying message is preserved for diagnostics.
type ProviderError struct {
	Provider string // "cohere", "groq", "jobspy"
	Op       string // "embed", "complete", "search"
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Provider constructs a ProviderError from a formatted message.
func Provider(provider, op, format string, args ...any) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Err: fmt.Errorf(format, args...)}
}

// ProviderWrap wraps an existing error as a ProviderError.
func ProviderWrap(provider, op string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Err: err}
}

// NotFoundError reports an absent record or an empty retrieval result.
type NotFoundError struct {
	Resource string // "user", "document", "file", "context"
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NotFound constructs a NotFoundError.
func NotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError reports malformed caller input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validation constructs a ValidationError from a formatted message.
func Validation(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsProvider reports whether err is (or wraps) a ProviderError.
func IsProvider(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
