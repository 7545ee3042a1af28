package command_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cmdrunner/core/command"
)

func TestState_Transitions(t *testing.T) {
	t.Parallel()

	allowed := map[command.State][]command.State{
		command.StateCreated:   {command.StateQueued, command.StateCanceling},
		command.StateQueued:    {command.StateExecuting, command.StateCanceling},
		command.StateExecuting: {command.StateCanceling, command.StateCompleted, command.StateCanceled, command.StateError},
		command.StateCanceling: {command.StateCompleted, command.StateCanceled, command.StateError},
	}
	all := []command.State{
		command.StateUnknown,
		command.StateCreated,
		command.StateQueued,
		command.StateExecuting,
		command.StateCanceling,
		command.StateCompleted,
		command.StateCanceled,
		command.StateError,
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestState_IsTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, command.StateCompleted.IsTerminal())
	assert.True(t, command.StateCanceled.IsTerminal())
	assert.True(t, command.StateError.IsTerminal())
	assert.False(t, command.StateCreated.IsTerminal())
	assert.False(t, command.StateQueued.IsTerminal())
	assert.False(t, command.StateExecuting.IsTerminal())
	assert.False(t, command.StateCanceling.IsTerminal())
}

func TestState_Text(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		b, err := json.Marshal(command.StateCanceling)
		require.NoError(t, err)
		assert.Equal(t, `"canceling"`, string(b))

		var s command.State
		require.NoError(t, json.Unmarshal(b, &s))
		assert.Equal(t, command.StateCanceling, s)
	})

	t.Run("unknown name", func(t *testing.T) {
		t.Parallel()

		var s command.State
		assert.Error(t, s.UnmarshalText([]byte("paused")))
	})

	t.Run("out of range value", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "state(42)", command.State(42).String())
	})
}

func TestStateChange_String(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 9, 14, 5, 7, 123_000_000, time.UTC)
	change := command.StateChange{State: command.StateQueued, Time: ts}

	assert.JSONEq(t, `{"state":"queued","time":"2024/03/09 14:05:07.123"}`, change.String())
}
