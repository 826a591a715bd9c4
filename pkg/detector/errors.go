package detector

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrAlreadyStarted is returned when Run is called on a session that has
	// left NotStarted. Sessions never restart.
	ErrAlreadyStarted = errors.New("detector: session already started")

	// ErrSessionActive is returned when a detection is triggered while
	// another session is loading or running.
	ErrSessionActive = errors.New("detector: a session is already active")

	// ErrEmptyResult means the classifier returned no predictions.
	ErrEmptyResult = errors.New("detector: classifier returned no predictions")
)

// ModelLoadError means the classifier model could not be initialized.
type ModelLoadError struct {
	Backend string
	Err     error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load %s model: %v", e.Backend, e.Err)
}

// Unwrap returns the loader error.
func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

// ClassificationError means a detection cycle failed. It stops the session.
type ClassificationError struct {
	Cycle uint64
	Err   error
}

func (e *ClassificationError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the cycle error.
func (e *ClassificationError) Unwrap() error {
	return e.Err
}
