package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/cmdrunner/core/logger"
)

// ErrNotReady is returned by Readiness when at least one probe fails.
var ErrNotReady = errors.New("health: not ready")

// Probe checks one dependency.
type Probe func(ctx context.Context) error

// Checker runs named probes. The zero value is not usable; use New.
type Checker struct {
	mu      sync.RWMutex
	names   []string
	probes  map[string]Probe
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithTimeout bounds each probe call.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a checker with no probes.
func New(opts ...Option) *Checker {
	c := &Checker{
		probes:  make(map[string]Probe),
		timeout: 5 * time.Second,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds or replaces a probe. Probes run in registration order.
func (c *Checker) Register(name string, probe Probe) {
	if probe == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.probes[name]; !exists {
		c.names = append(c.names, name)
	}
	c.probes[name] = probe
}

// Liveness reports that the process is up. It never checks dependencies.
func (c *Checker) Liveness(context.Context) error {
	return nil
}

// Readiness runs every probe and joins the failures under ErrNotReady.
func (c *Checker) Readiness(ctx context.Context) error {
	c.mu.RLock()
	names := append([]string(nil), c.names...)
	probes := make([]Probe, len(names))
	for i, name := range names {
		probes[i] = c.probes[name]
	}
	c.mu.RUnlock()

	var errs []error
	for i, probe := range probes {
		if err := c.run(ctx, probe); err != nil {
			c.logger.ErrorContext(ctx, "readiness probe failed",
				logger.Component(names[i]),
				logger.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", names[i], err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrNotReady, errors.Join(errs...))
	}
	return nil
}

func (c *Checker) run(ctx context.Context, probe Probe) (err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("probe panicked: %v", r)
		}
	}()
	return probe(ctx)
}
