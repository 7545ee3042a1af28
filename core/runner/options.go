package runner

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/cmdrunner/core/command"
	"github.com/dmitrymomot/cmdrunner/core/event"
)

const (
	DefaultConcurrency     = 1
	DefaultRetention       = time.Minute
	DefaultSweepInterval   = 250 * time.Millisecond
	DefaultShutdownTimeout = 30 * time.Second
)

// Observer receives a snapshot of every command that reaches a terminal state.
type Observer func(ctx context.Context, info command.Info) error

// Option configures a Runner.
type Option func(*options)

type options struct {
	concurrency     int
	retention       time.Duration
	sweepInterval   time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger
	bus             *event.Bus
	observers       []Observer
}

// WithConcurrency sets how many commands may execute at once. Non-positive values are ignored.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithRetention sets how long terminal commands stay queryable before the sweep evicts them.
func WithRetention(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.retention = d
		}
	}
}

// WithSweepInterval sets how often terminal commands are checked for eviction.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.sweepInterval = d
		}
	}
}

// WithShutdownTimeout bounds how long Close waits for executing commands.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEventBus publishes completion events on a shared bus instead of a private one.
func WithEventBus(bus *event.Bus) Option {
	return func(o *options) {
		if bus != nil {
			o.bus = bus
		}
	}
}

// WithObserver registers completion observers at construction.
func WithObserver(observers ...Observer) Option {
	return func(o *options) {
		for _, obs := range observers {
			if obs != nil {
				o.observers = append(o.observers, obs)
			}
		}
	}
}
