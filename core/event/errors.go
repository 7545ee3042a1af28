package event

import "errors"

var (
	// ErrNilHandler is returned when subscribing a nil handler.
	ErrNilHandler = errors.New("event handler cannot be nil")

	// ErrNoHandlers is returned in strict mode when no handlers are registered for an event.
	ErrNoHandlers = errors.New("no handlers registered for event")

	// ErrHandlerFailed wraps every error returned by a handler during Publish.
	ErrHandlerFailed = errors.New("event handler failed")

	// ErrHandlerPanicked is returned when a handler panics; the panic is recovered.
	ErrHandlerPanicked = errors.New("event handler panicked")

	// ErrPayloadType is returned when a payload cannot be converted to the handler's type.
	ErrPayloadType = errors.New("unexpected event payload type")
)
