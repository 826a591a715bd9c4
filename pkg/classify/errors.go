package classify

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNoModel is returned when a model file is required but missing.
	ErrNoModel = errors.New("classify: model file required")

	// ErrNoLabels is returned when the label list is empty.
	ErrNoLabels = errors.New("classify: labels required")

	// ErrEmptyFrame is returned when a frame carries no image data.
	ErrEmptyFrame = errors.New("classify: empty frame")

	// ErrModelClosed is returned when classifying with a closed model.
	ErrModelClosed = errors.New("classify: model closed")
)

// APIError represents an error response from a remote classifier.
type APIError struct {
	// Code is the status code returned by the service.
	Code int

	// Message is the error message from the service.
	Message string

	// Provider identifies which backend returned the error.
	Provider string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("classify [%s]: API error %d: %s", e.Provider, e.Code, e.Message)
}

// BackendError wraps an error with backend context.
type BackendError struct {
	Backend string
	Err     error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("classify [%s]: %v", e.Backend, e.Err)
}

// Unwrap returns the underlying error.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with backend context.
func WrapError(backend string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Backend: backend, Err: err}
}
