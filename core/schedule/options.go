package schedule

import (
	"log/slog"
	"time"
)

// Option configures a Scheduler.
type Option func(*options)

type options struct {
	location        *time.Location
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// WithLocation sets the time zone cron specs are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithShutdownTimeout bounds how long Stop waits for in-flight admissions.
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

// EntryOption configures a single schedule entry.
type EntryOption func(*entryOptions)

type entryOptions struct {
	skipIfRunning bool
}

// WithSkipIfRunning skips a fire while the command admitted by the previous
// fire of the same entry has not reached a terminal state.
func WithSkipIfRunning() EntryOption {
	return func(o *entryOptions) {
		o.skipIfRunning = true
	}
}
