package command

import (
	"errors"
	"fmt"
)

var (
	// ErrNilExecutor is returned when a command is constructed without domain logic.
	ErrNilExecutor = errors.New("command executor cannot be nil")

	// ErrInvalidArgument is returned when the argument payload cannot be interpreted
	// as the shape the executor expects, or a result cannot be encoded.
	ErrInvalidArgument = errors.New("invalid command argument")

	// ErrCanceled is the outcome of a run that observed a cancellation request.
	// Executors return it (or wrap it) to end in the Canceled state.
	ErrCanceled = errors.New("command canceled")

	// ErrExecutionFailed wraps every failure recorded on a command in the Error state.
	ErrExecutionFailed = errors.New("command execution failed")

	// ErrInvalidTransition is returned when a lifecycle step is not allowed from the current state.
	ErrInvalidTransition = errors.New("invalid command state transition")

	// ErrResultAlreadySet is returned when an executor publishes a result twice.
	ErrResultAlreadySet = errors.New("command result already set")
)

// Failure is a domain failure carrying an application-defined code.
// Executors return it to end in the Error state with a machine-readable reason.
type Failure struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

func (f *Failure) Error() string {
	if f.Message == "" {
		return fmt.Sprintf("command failure: code %d", f.Code)
	}
	return fmt.Sprintf("command failure: code %d: %s", f.Code, f.Message)
}

// NewFailure creates a domain failure with the given code and message.
func NewFailure(code int, message string) error {
	return &Failure{Code: code, Message: message}
}
