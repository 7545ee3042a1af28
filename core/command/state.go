package command

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// State tracks the lifecycle of a command.
type State int

const (
	StateUnknown State = iota
	StateCreated
	StateQueued
	StateExecuting
	StateCanceling
	StateCompleted
	StateCanceled
	StateError
)

var stateNames = map[State]string{
	StateUnknown:   "unknown",
	StateCreated:   "created",
	StateQueued:    "queued",
	StateExecuting: "executing",
	StateCanceling: "canceling",
	StateCompleted: "completed",
	StateCanceled:  "canceled",
	StateError:     "error",
}

// transitions lists the allowed successors of every non-terminal state.
var transitions = map[State][]State{
	StateCreated:   {StateQueued, StateCanceling},
	StateQueued:    {StateExecuting, StateCanceling},
	StateExecuting: {StateCanceling, StateCompleted, StateCanceled, StateError},
	StateCanceling: {StateCompleted, StateCanceled, StateError},
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateCanceled || s == StateError
}

// CanTransitionTo reports whether next is an allowed successor of s.
func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for state, n := range stateNames {
		if n == name {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown command state %q", string(text))
}

// StateChange is one entry of a command's state history.
type StateChange struct {
	State State     `json:"state"`
	Time  time.Time `json:"time"`
}

func (c StateChange) String() string {
	b, err := json.Marshal(struct {
		State State  `json:"state"`
		Time  string `json:"time"`
	}{c.State, c.Time.Format("2006/01/02 15:04:05.000")})
	if err != nil {
		return c.State.String()
	}
	return string(b)
}
