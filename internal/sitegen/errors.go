package sitegen

import (
	"errors"
	"fmt"
)

// Sentinel errors used by stores and the consumer claim protocol.
var (
	// ErrNotClaimed is returned when a conditional status update matches
	// zero rows: the job was already claimed or is already terminal.
	ErrNotClaimed = errors.New("job not claimed")

	// ErrNotFound is the base for unknown job/site lookups.
	ErrNotFound = errors.New("not found")
)

// ValidationError rejects bad input synchronously; no job is created.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// NewValidationError builds a ValidationError.
func NewValidationError(reason string) error {
	return &ValidationError{Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NotFoundError identifies an unknown job or site ID.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFoundError builds a NotFoundError for the given entity kind.
func NewNotFoundError(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// ProviderError wraps a failure from an external collaborator (domain,
// name, or content provider). Provider failures are non-fatal per index.
type ProviderError struct {
	Provider string
	Err      error
	// Transient marks timeouts and rate-limit responses eligible for
	// backoff retry before being downgraded to unknown/skip.
	Transient bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err as a permanent provider failure.
func NewProviderError(provider string, err error) error {
	return &ProviderError{Provider: provider, Err: err}
}

// NewTransientProviderError wraps err as a retryable provider failure.
func NewTransientProviderError(provider string, err error) error {
	return &ProviderError{Provider: provider, Err: err, Transient: true}
}

// IsTransientProvider reports whether err is a retryable provider failure.
func IsTransientProvider(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Transient
}

// StorageError wraps a store or blob sink failure during persistence. Fatal
// to the affected index only, unless the job row itself cannot be updated.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err with the failing storage operation.
func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
