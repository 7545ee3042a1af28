package event

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
)

// HandlerFunc is a type-safe function signature for processing events of type T.
type HandlerFunc[T any] func(context.Context, T) error

// Handler processes events published on a Bus.
type Handler interface {
	// EventName returns the event name this handler processes.
	// The name "*" subscribes to every event.
	EventName() string

	// Handle executes the handler with the given event payload.
	Handle(ctx context.Context, payload any) error
}

// Wildcard subscribes a handler to every event published on the bus.
const Wildcard = "*"

// NewHandler creates a handler for an explicitly named event.
//
// Example:
//
//	h := event.NewHandler("command.finished", func(ctx context.Context, info command.Info) error {
//	    return archive.Save(ctx, info)
//	})
func NewHandler[T any](eventName string, fn HandlerFunc[T]) Handler {
	return &handlerFuncWrapper[T]{name: eventName, fn: fn}
}

// NewHandlerFunc creates a handler whose event name is the type name of T
// (pointer types are unwrapped).
func NewHandlerFunc[T any](fn HandlerFunc[T]) Handler {
	var zero T
	return &handlerFuncWrapper[T]{name: eventName(zero), fn: fn}
}

type handlerFuncWrapper[T any] struct {
	name string
	fn   HandlerFunc[T]
}

func (h *handlerFuncWrapper[T]) EventName() string {
	return h.name
}

func (h *handlerFuncWrapper[T]) Handle(ctx context.Context, payload any) error {
	typed, err := unmarshalPayload[T](payload)
	if err != nil {
		return err
	}
	return h.fn(ctx, typed)
}

func eventName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// unmarshalPayload converts payload to T. Payloads of type T pass through;
// raw JSON is decoded.
func unmarshalPayload[T any](payload any) (T, error) {
	var zero T

	if v, ok := payload.(T); ok {
		return v, nil
	}

	var data []byte
	switch p := payload.(type) {
	case []byte:
		data = p
	case json.RawMessage:
		data = p
	default:
		return zero, fmt.Errorf("%w: %T", ErrPayloadType, payload)
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return v, nil
}
