package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Info is a point-in-time copy of a command's metadata. It shares nothing with
// the live command and is safe to keep, pass around and serialize.
type Info struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	Priority          Priority        `json:"priority"`
	State             State           `json:"state"`
	EntryTime         time.Time       `json:"entry_time"`
	ExecuteTime       time.Time       `json:"execute_time"`
	CompleteTime      time.Time       `json:"complete_time"`
	CancelRequested   bool            `json:"cancel_requested"`
	DeleteImmediately bool            `json:"delete_immediately"`
	Args              string          `json:"args,omitempty"`
	Result            json.RawMessage `json:"result,omitempty"`
	Error             string          `json:"error,omitempty"`
	History           []StateChange   `json:"history"`

	// Err is the recorded failure for commands in the Error state.
	Err error `json:"-"`
}

// Succeeded reports whether the command completed normally.
func (i Info) Succeeded() bool { return i.State == StateCompleted }

// Canceled reports whether the command ended because of a cancel request.
func (i Info) Canceled() bool { return i.State == StateCanceled }

// Failed reports whether the command ended with a failure.
func (i Info) Failed() bool { return i.State == StateError }

// Failure returns the domain failure recorded on the command, if any.
func (i Info) Failure() (*Failure, bool) {
	var f *Failure
	if i.Err != nil && errors.As(i.Err, &f) {
		return f, true
	}
	return nil, false
}

// QueueDelay is the time spent between admission and dispatch.
func (i Info) QueueDelay() time.Duration {
	if i.EntryTime.IsZero() || i.ExecuteTime.IsZero() {
		return 0
	}
	return i.ExecuteTime.Sub(i.EntryTime)
}

// Duration is the time spent executing. Zero until the command is terminal.
func (i Info) Duration() time.Duration {
	if i.ExecuteTime.IsZero() || i.CompleteTime.IsZero() {
		return 0
	}
	return i.CompleteTime.Sub(i.ExecuteTime)
}

// String renders the snapshot as JSON.
func (i Info) String() string {
	b, err := json.Marshal(i)
	if err != nil {
		return fmt.Sprintf("%s(%s) %s", i.Name, i.ID, i.State)
	}
	return string(b)
}

// Result decodes the published result of a snapshot into T.
// A command without a result yields the zero value.
func Result[T any](i Info) (T, error) {
	var v T
	if len(i.Result) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(i.Result, &v); err != nil {
		return v, fmt.Errorf("%w: decode result of %s: %w", ErrInvalidArgument, i.Name, err)
	}
	return v, nil
}
