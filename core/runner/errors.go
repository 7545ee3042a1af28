package runner

import "errors"

var (
	// ErrNotFound is returned when no tracked command has the given id.
	ErrNotFound = errors.New("command not found")

	// ErrRunnerClosed is returned when admitting into a closed runner.
	ErrRunnerClosed = errors.New("runner is closed")

	// ErrAlreadyAdmitted is returned when a command is admitted twice.
	ErrAlreadyAdmitted = errors.New("command already admitted")

	// ErrNilCommand is returned when admitting a nil command.
	ErrNilCommand = errors.New("command cannot be nil")

	// ErrObserverFailed marks a completion observer that returned an error or panicked.
	// It is logged and counted, never returned to callers.
	ErrObserverFailed = errors.New("completion observer failed")

	// ErrHealthcheckFailed is the base error for all healthcheck failures.
	ErrHealthcheckFailed = errors.New("runner healthcheck failed")

	// ErrRunnerOverloaded is returned by Healthcheck when every slot is busy and commands are waiting.
	ErrRunnerOverloaded = errors.New("runner overloaded")

	// ErrShutdownTimeout is returned by Close when in-flight commands outlive the shutdown timeout.
	ErrShutdownTimeout = errors.New("runner shutdown timeout exceeded")
)
