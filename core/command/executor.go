package command

import (
	"context"
	"fmt"
	"strings"
)

type (
	// Executor is the domain logic of a command kind.
	// Name identifies the kind; Execute performs the work synchronously on the
	// goroutine the runner provides and reads arguments / publishes results
	// through the command it receives.
	Executor interface {
		Name() string
		Execute(ctx context.Context, c *Command) error
	}

	// PolicyProvider is implemented by executors whose kind needs a non-default policy.
	PolicyProvider interface {
		Policy() Policy
	}

	// HandlerFunc is a type-safe executor function that receives decoded
	// arguments of type A and returns a result of type R.
	HandlerFunc[A, R any] func(ctx context.Context, args A) (R, error)

	// ActionFunc is a type-safe executor function without a result.
	ActionFunc[A any] func(ctx context.Context, args A) error
)

// CancelMode controls how a cancellation request reaches running domain logic.
type CancelMode int

const (
	// CancelContext cancels the run context and sets the cancel flag.
	CancelContext CancelMode = iota
	// CancelFlagOnly only sets the cancel flag; the executor polls CheckCanceled.
	CancelFlagOnly
)

// Policy holds the per-kind behaviour the runner applies to a command.
type Policy struct {
	// DeleteImmediately evicts the command as soon as it reaches a terminal
	// state instead of keeping it for the retention window.
	DeleteImmediately bool
	// Cancel selects how cancellation is delivered to a running executor.
	Cancel CancelMode
}

// HandlerOption configures the policy of an executor built by NewHandler or NewAction.
type HandlerOption func(*Policy)

// WithDeleteImmediately marks the command kind for eviction right after completion.
func WithDeleteImmediately() HandlerOption {
	return func(p *Policy) {
		p.DeleteImmediately = true
	}
}

// WithCancelMode sets how cancellation requests reach the executor.
func WithCancelMode(mode CancelMode) HandlerOption {
	return func(p *Policy) {
		p.Cancel = mode
	}
}

// NewHandler creates a type-safe executor. Arguments are decoded into A before
// fn runs and the returned R is published as the command result.
// An empty name is derived from the argument type (e.g. "images.ResizeArgs").
func NewHandler[A, R any](name string, fn HandlerFunc[A, R], opts ...HandlerOption) Executor {
	h := &handler[A, R]{name: handlerName[A](name), fn: fn}
	for _, opt := range opts {
		opt(&h.policy)
	}
	return h
}

// NewAction creates a type-safe executor for work that produces no result.
func NewAction[A any](name string, fn ActionFunc[A], opts ...HandlerOption) Executor {
	return NewHandler(name, func(ctx context.Context, args A) (struct{}, error) {
		return struct{}{}, fn(ctx, args)
	}, opts...)
}

type handler[A, R any] struct {
	name   string
	fn     HandlerFunc[A, R]
	policy Policy
}

func (h *handler[A, R]) Name() string {
	return h.name
}

func (h *handler[A, R]) Policy() Policy {
	return h.policy
}

func (h *handler[A, R]) Execute(ctx context.Context, c *Command) error {
	args, err := Args[A](c)
	if err != nil {
		return err
	}

	res, err := h.fn(ctx, args)
	if err != nil {
		return err
	}

	if _, ok := any(res).(struct{}); ok {
		return nil
	}
	return c.SetResult(res)
}

func policyOf(exec Executor) Policy {
	if p, ok := exec.(PolicyProvider); ok {
		return p.Policy()
	}
	return Policy{}
}

// handlerName returns name, or the type name of A without pointer prefixes.
func handlerName[A any](name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	var zero A
	return strings.TrimLeft(fmt.Sprintf("%T", zero), "*")
}
