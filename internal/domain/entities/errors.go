package entities

import (
	"errors"
	"fmt"
)

// Error kinds returned by the core
var (
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrTimerAlreadyRunning = errors.New("a timer is already running for this task")
	ErrNoActiveTimer       = errors.New("timer not started for this task")
	ErrInvalidDate         = errors.New("invalid date format")
	ErrValidation          = errors.New("validation failed")
	ErrUserExists          = errors.New("user already exists")
)

// Entity specific not-found errors; errors.Is(err, ErrNotFound) holds for all of them.
var (
	ErrTaskNotFound = fmt.Errorf("task %w", ErrNotFound)
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
)

// ValidationError describes a malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
