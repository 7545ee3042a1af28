package event

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/cmdrunner/core/logger"
)

// Bus delivers events synchronously to subscribed handlers in the publisher's
// goroutine. Handlers run in subscription order; a failing or panicking handler
// does not prevent the remaining handlers from running.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]subscription
	nextID   uint64

	strict bool
	logger *slog.Logger

	eventsPublished atomic.Int64
	handlersFailed  atomic.Int64
	lastActivityAt  atomic.Int64
}

type subscription struct {
	id      uint64
	handler Handler
}

// BusStats provides observability metrics for the bus.
type BusStats struct {
	EventsPublished int64
	HandlersFailed  int64
	Subscriptions   int
	LastActivityAt  time.Time
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithLogger sets the logger used to report handler failures.
func WithLogger(l *slog.Logger) BusOption {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithStrict makes Publish fail with ErrNoHandlers when nobody listens.
func WithStrict() BusOption {
	return func(b *Bus) {
		b.strict = true
	}
}

// WithHandler subscribes handlers at construction.
func WithHandler(handlers ...Handler) BusOption {
	return func(b *Bus) {
		for _, h := range handlers {
			_, _ = b.subscribe(h)
		}
	}
}

// NewBus creates an empty bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		handlers: make(map[string][]subscription),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler and returns a function that removes it.
// The returned function is safe to call more than once.
func (b *Bus) Subscribe(h Handler) (func(), error) {
	return b.subscribe(h)
}

func (b *Bus) subscribe(h Handler) (func(), error) {
	if h == nil {
		return nil, ErrNilHandler
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	name := h.EventName()
	b.handlers[name] = append(b.handlers[name], subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(name, id) })
	}, nil
}

func (b *Bus) unsubscribe(name string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[name]
	for i, s := range subs {
		if s.id == id {
			b.handlers[name] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.handlers[name]) == 0 {
		delete(b.handlers, name)
	}
}

// Publish runs every handler subscribed to name (and to Wildcard) with payload.
// Errors from all handlers are aggregated with errors.Join; panics are
// recovered and reported as ErrHandlerPanicked.
func (b *Bus) Publish(ctx context.Context, name string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	handlers := b.handlersFor(name)
	b.eventsPublished.Add(1)
	b.lastActivityAt.Store(time.Now().UnixNano())

	if len(handlers) == 0 {
		if b.strict {
			return fmt.Errorf("%w: %s", ErrNoHandlers, name)
		}
		return nil
	}

	var errs []error
	for _, h := range handlers {
		if err := safeHandle(ctx, h, payload); err != nil {
			b.handlersFailed.Add(1)
			b.logger.ErrorContext(ctx, "event handler failed",
				logger.Event(name),
				logger.Handler(h.EventName()),
				logger.Error(err),
			)
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrHandlerFailed, name, err))
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, subs := range b.handlers {
		n += len(subs)
	}
	return n
}

// Stats returns bus metrics.
func (b *Bus) Stats() BusStats {
	var last time.Time
	if ns := b.lastActivityAt.Load(); ns > 0 {
		last = time.Unix(0, ns)
	}
	return BusStats{
		EventsPublished: b.eventsPublished.Load(),
		HandlersFailed:  b.handlersFailed.Load(),
		Subscriptions:   b.Len(),
		LastActivityAt:  last,
	}
}

func (b *Bus) handlersFor(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Handler, 0, len(b.handlers[name])+len(b.handlers[Wildcard]))
	for _, s := range b.handlers[name] {
		out = append(out, s.handler)
	}
	if name != Wildcard {
		for _, s := range b.handlers[Wildcard] {
			out = append(out, s.handler)
		}
	}
	return out
}

func safeHandle(ctx context.Context, h Handler, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanicked, r)
		}
	}()
	return h.Handle(ctx, payload)
}
