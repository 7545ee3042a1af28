package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/cmdrunner/core/command"
	"github.com/dmitrymomot/cmdrunner/core/logger"
	"github.com/dmitrymomot/cmdrunner/core/runner"
)

// ObserverOption configures the archiving observer.
type ObserverOption func(*observerOptions)

type observerOptions struct {
	filter      func(command.Info) bool
	saveTimeout time.Duration
	logger      *slog.Logger
}

// WithFilter archives only the snapshots for which keep returns true.
func WithFilter(keep func(command.Info) bool) ObserverOption {
	return func(o *observerOptions) {
		o.filter = keep
	}
}

// OnlyFailed keeps snapshots of commands that ended in the Error state.
func OnlyFailed() ObserverOption {
	return WithFilter(command.Info.Failed)
}

// WithSaveTimeout bounds each Save call.
func WithSaveTimeout(d time.Duration) ObserverOption {
	return func(o *observerOptions) {
		if d > 0 {
			o.saveTimeout = d
		}
	}
}

func WithObserverLogger(logger *slog.Logger) ObserverOption {
	return func(o *observerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Observer returns a runner completion observer that writes every terminal
// snapshot to store. Save failures are returned to the runner, which logs and
// counts them without affecting other observers.
func Observer(store Store, opts ...ObserverOption) (runner.Observer, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	o := &observerOptions{
		saveTimeout: DefaultSaveTimeout,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}

	return func(ctx context.Context, info command.Info) error {
		if o.filter != nil && !o.filter(info) {
			return nil
		}

		ctx, cancel := context.WithTimeout(ctx, o.saveTimeout)
		defer cancel()

		if err := store.Save(ctx, info); err != nil {
			o.logger.ErrorContext(ctx, "failed to archive command",
				logger.CommandID(info.ID),
				logger.CommandName(info.Name),
				logger.Error(err),
			)
			return err
		}
		return nil
	}, nil
}

// Backends holds the clients a configured store may need.
type Backends struct {
	Redis    redis.UniversalClient
	Postgres *pgxpool.Pool
}

// NewStoreFromConfig builds the store named by cfg.Backend. The Postgres
// backend applies the archive migrations on the way.
func NewStoreFromConfig(ctx context.Context, cfg Config, backends Backends, opts ...Option) (Store, error) {
	allOpts := append([]Option{
		WithTTL(cfg.TTL),
		WithKeyPrefix(cfg.KeyPrefix),
	}, opts...)

	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(allOpts...), nil
	case BackendRedis:
		if backends.Redis == nil {
			return nil, fmt.Errorf("%w: redis client required", ErrNilStore)
		}
		store, err := NewRedisStore(backends.Redis, allOpts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendPostgres:
		if backends.Postgres == nil {
			return nil, fmt.Errorf("%w: postgres pool required", ErrNilStore)
		}
		if err := Migrate(ctx, backends.Postgres, nil); err != nil {
			return nil, err
		}
		store, err := NewPostgresStore(backends.Postgres, allOpts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// NewObserverFromConfig combines NewStoreFromConfig and Observer.
func NewObserverFromConfig(ctx context.Context, cfg Config, backends Backends, opts ...ObserverOption) (runner.Observer, Store, error) {
	store, err := NewStoreFromConfig(ctx, cfg, backends)
	if err != nil {
		return nil, nil, err
	}

	allOpts := []ObserverOption{WithSaveTimeout(cfg.SaveTimeout)}
	if cfg.OnlyFailed {
		allOpts = append(allOpts, OnlyFailed())
	}
	allOpts = append(allOpts, opts...)

	obs, err := Observer(store, allOpts...)
	if err != nil {
		return nil, nil, err
	}
	return obs, store, nil
}
