package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Priority orders queued commands; higher values are dispatched first.
type Priority int

const (
	PriorityLow     Priority = 25
	PriorityMedium  Priority = 50
	PriorityHigh    Priority = 75
	PriorityDefault Priority = PriorityMedium
)

// Command is a unit of schedulable work: identity, priority, lifecycle state,
// timing and an append-only history of state changes.
//
// All mutations go through the command's own lock, so a reader never observes
// transitions out of order.
type Command struct {
	id       uuid.UUID
	name     string
	priority Priority
	exec     Executor
	policy   Policy
	args     []byte

	mu              sync.Mutex
	state           State
	entryTime       time.Time
	executeTime     time.Time
	completeTime    time.Time
	cancelRequested bool
	result          json.RawMessage
	err             error
	history         []StateChange
	ran             bool
	cancelRun       context.CancelFunc
	done            chan struct{}
}

// Option configures a command at construction.
type Option func(*options)

type options struct {
	priority Priority
	args     []byte
	err      error
}

// WithPriority sets the scheduling priority.
func WithPriority(p Priority) Option {
	return func(o *options) {
		o.priority = p
	}
}

// WithArgs JSON-encodes v as the argument payload.
func WithArgs(v any) Option {
	return func(o *options) {
		data, err := json.Marshal(v)
		if err != nil {
			o.err = fmt.Errorf("%w: encode args: %w", ErrInvalidArgument, err)
			return
		}
		o.args = data
	}
}

// WithRawArgs sets an opaque argument payload. It is passed to the executor as is.
func WithRawArgs(payload []byte) Option {
	return func(o *options) {
		o.args = append([]byte(nil), payload...)
	}
}

// New creates a command in the Created state for the given executor.
func New(exec Executor, opts ...Option) (*Command, error) {
	if exec == nil {
		return nil, ErrNilExecutor
	}

	o := &options{priority: PriorityDefault}
	for _, opt := range opts {
		opt(o)
	}
	if o.err != nil {
		return nil, o.err
	}

	name := strings.TrimSpace(exec.Name())
	if name == "" {
		name = "command"
	}

	now := time.Now()
	return &Command{
		id:       uuid.New(),
		name:     name,
		priority: o.priority,
		exec:     exec,
		policy:   policyOf(exec),
		args:     o.args,
		state:    StateCreated,
		history:  []StateChange{{State: StateCreated, Time: now}},
		done:     make(chan struct{}),
	}, nil
}

// MustNew is like New but panics on error.
func MustNew(exec Executor, opts ...Option) *Command {
	c, err := New(exec, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Command) ID() uuid.UUID      { return c.id }
func (c *Command) Name() string       { return c.name }
func (c *Command) Priority() Priority { return c.priority }
func (c *Command) Policy() Policy     { return c.policy }

// State returns the current lifecycle state.
func (c *Command) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// EntryTime returns when the command was queued (zero until then).
func (c *Command) EntryTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entryTime
}

// CancelRequested reports whether cancellation has been requested.
func (c *Command) CancelRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelRequested
}

// Done is closed when the command reaches a terminal state.
func (c *Command) Done() <-chan struct{} {
	return c.done
}

// Enqueue moves the command from Created to Queued and stamps its entry time.
func (c *Command) Enqueue() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transition(StateQueued)
}

// Start moves the command from Queued to Executing and stamps its execute time.
// The domain logic runs later, in Run, on the caller-provided goroutine.
func (c *Command) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transition(StateExecuting)
}

// Run executes the domain logic synchronously and records the terminal state.
//
// A command whose cancellation was requested before Run never invokes its
// executor and ends Canceled. Otherwise a nil return ends Completed, ErrCanceled
// (or context.Canceled after a cancel request) ends Canceled, and anything else,
// panics included, ends Error with the failure recorded.
//
// Run is valid once, from Executing or Canceling. The returned error only
// reports misuse; the outcome lives on the command.
func (c *Command) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	if c.ran {
		c.mu.Unlock()
		return fmt.Errorf("%w: command %s already ran", ErrInvalidTransition, c.id)
	}
	if c.state != StateExecuting && c.state != StateCanceling {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot run command in state %s", ErrInvalidTransition, state)
	}
	c.ran = true
	canceled := c.cancelRequested
	runCtx, cancel := context.WithCancel(withCommand(ctx, c))
	c.cancelRun = cancel
	c.mu.Unlock()
	defer cancel()

	var err error
	if canceled {
		err = ErrCanceled
	} else {
		err = c.invoke(runCtx)
	}

	c.finish(err)
	return nil
}

func (c *Command) invoke(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrExecutionFailed, r)
		}
	}()
	return c.exec.Execute(ctx, c)
}

func (c *Command) finish(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelRun = nil

	next := StateCompleted
	switch {
	case err == nil:
	case errors.Is(err, ErrCanceled),
		c.cancelRequested && errors.Is(err, context.Canceled):
		next = StateCanceled
		c.result = nil
	default:
		next = StateError
		c.result = nil
		if !errors.Is(err, ErrExecutionFailed) {
			err = fmt.Errorf("%w: %w", ErrExecutionFailed, err)
		}
		c.err = err
	}

	_ = c.transition(next)
}

// RequestCancel records the intent to cancel and moves a non-terminal command
// to Canceling. It does not interrupt the run; depending on the kind's policy
// the run context is canceled too. Returns false for terminal commands.
func (c *Command) RequestCancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.IsTerminal() {
		return false
	}

	c.cancelRequested = true
	if c.state != StateCanceling {
		_ = c.transition(StateCanceling)
	}
	if c.cancelRun != nil && c.policy.Cancel == CancelContext {
		c.cancelRun()
	}
	return true
}

// CheckCanceled returns ErrCanceled once cancellation has been requested.
// Long-running executors call it between steps.
func (c *Command) CheckCanceled() error {
	if c.CancelRequested() {
		return ErrCanceled
	}
	return nil
}

// RawArgs returns a copy of the opaque argument payload.
func (c *Command) RawArgs() []byte {
	return append([]byte(nil), c.args...)
}

// Args decodes the argument payload into T. An empty payload yields the zero
// value; a payload that does not fit T fails with ErrInvalidArgument.
func Args[T any](c *Command) (T, error) {
	var v T
	if len(c.args) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(c.args, &v); err != nil {
		return v, fmt.Errorf("%w: decode args for %s: %w", ErrInvalidArgument, c.name, err)
	}
	return v, nil
}

// SetResult JSON-encodes v as the command result. A result can be set once.
func (c *Command) SetResult(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode result: %w", ErrInvalidArgument, err)
	}
	return c.SetRawResult(data)
}

// SetRawResult publishes an already encoded JSON result.
func (c *Command) SetRawResult(data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("%w: result is not valid JSON", ErrInvalidArgument)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.result != nil {
		return ErrResultAlreadySet
	}
	c.result = append(json.RawMessage(nil), data...)
	return nil
}

// Snapshot returns an independent copy of the command's metadata.
func (c *Command) Snapshot() Info {
	c.mu.Lock()
	defer c.mu.Unlock()

	info := Info{
		ID:                c.id,
		Name:              c.name,
		Priority:          c.priority,
		State:             c.state,
		EntryTime:         c.entryTime,
		ExecuteTime:       c.executeTime,
		CompleteTime:      c.completeTime,
		CancelRequested:   c.cancelRequested,
		DeleteImmediately: c.policy.DeleteImmediately,
		Args:              string(c.args),
		Result:            append(json.RawMessage(nil), c.result...),
		Err:               c.err,
		History:           append([]StateChange(nil), c.history...),
	}
	if len(info.Result) == 0 {
		info.Result = nil
	}
	if c.err != nil {
		info.Error = c.err.Error()
	}
	return info
}

func (c *Command) String() string {
	return c.Snapshot().String()
}

// transition must be called with c.mu held.
func (c *Command) transition(next State) error {
	if !c.state.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.state, next)
	}

	now := c.now()
	switch {
	case next == StateQueued:
		c.entryTime = now
	case next == StateExecuting:
		c.executeTime = now
	case next.IsTerminal():
		c.completeTime = now
		close(c.done)
	}

	c.state = next
	c.history = append(c.history, StateChange{State: next, Time: now})
	return nil
}

// now returns the current time, bumped so history timestamps strictly increase.
func (c *Command) now() time.Time {
	now := time.Now()
	if n := len(c.history); n > 0 {
		if last := c.history[n-1].Time; !now.After(last) {
			now = last.Add(time.Nanosecond)
		}
	}
	return now
}
