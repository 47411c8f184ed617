package ports

import (
	"errors"
	"fmt"
)

// Common infrastructure errors that can occur during external service
// interactions.
var (
	// ErrServiceUnavailable indicates that an external service (model,
	// embedding API or vector store) failed or could not be reached.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidResponse indicates that the service returned an invalid
	// response.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrDimensionMismatch indicates that a vector does not match the
	// store's dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// ServiceError represents a failed call to an external collaborator.
// Every ServiceError matches ErrServiceUnavailable with errors.Is.
type ServiceError struct {
	// Service names the collaborator, for example "llm" or "vector_store".
	Service string

	// Operation is the name of the operation that failed.
	Operation string

	// Err is the underlying error that occurred.
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error: service=%s, operation=%s, err=%v", e.Service, e.Operation, e.Err)
}

// Unwrap exposes both the underlying error and ErrServiceUnavailable.
func (e *ServiceError) Unwrap() []error {
	return []error{ErrServiceUnavailable, e.Err}
}

// NewServiceError creates a new ServiceError with the given details.
func NewServiceError(service, operation string, err error) *ServiceError {
	return &ServiceError{
		Service:   service,
		Operation: operation,
		Err:       err,
	}
}

// StoreError represents an error from vector store operations.
type StoreError struct {
	// Backend is the store implementation, for example "memory" or "redis".
	Backend string

	// Operation is the name of the store operation that failed.
	Operation string

	// Err is the underlying error that caused the operation to fail.
	Err error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: backend=%s, operation=%s, err=%v", e.Backend, e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError creates a new StoreError with the given details.
func NewStoreError(backend, operation string, err error) *StoreError {
	return &StoreError{
		Backend:   backend,
		Operation: operation,
		Err:       err,
	}
}
