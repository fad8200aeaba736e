package errx

import (
	"errors"
	"fmt"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// RedisTimeoutMessage describes a Redis call that ran out of time.
	RedisTimeoutMessage = "redis operation timed out"
	// CalculationErrorMessage is the error text placed in a failed estimate tool result.
	CalculationErrorMessage = "Failed to calculate estimate"
)

// Sentinel errors shared across the assistant packages.
var (
	// ErrContextNotInitialized means a tool result was submitted before the chat registered itself.
	// Callers treat it as "not ready yet", never as fatal.
	ErrContextNotInitialized = errors.New("chat context not initialized")

	// ErrMissingCorrelationID means a tool result carried no tool call id.
	ErrMissingCorrelationID = errors.New("missing tool call id")

	// ErrValidation indicates estimator input failed its schema constraints.
	ErrValidation = errors.New("validation error")

	// ErrCalculation indicates the estimate could not be computed.
	ErrCalculation = errors.New("calculation error")

	// ErrUnknownInvocation indicates a tool result for an invocation the conversation is not waiting on.
	ErrUnknownInvocation = errors.New("unknown tool invocation")
)

// Error wraps an underlying error with an HTTP status and safe message.
type Error struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error with the provided information.
func New(err error, status int, message string) *Error {
	return &Error{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// StatusOf returns the status carried by the first *Error in err's chain,
// or fallback when there is none.
func StatusOf(err error, fallback int) int {
	var e *Error
	if errors.As(err, &e) && e.Status != 0 {
		return e.Status
	}
	return fallback
}
