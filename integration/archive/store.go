package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/cmdrunner/core/command"
)

// Store keeps terminal command snapshots after the runner has evicted them.
type Store interface {
	Save(ctx context.Context, info command.Info) error
	Get(ctx context.Context, id uuid.UUID) (command.Info, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Option configures a store.
type Option func(*options)

type options struct {
	ttl       time.Duration
	keyPrefix string
	logger    *slog.Logger
}

// WithTTL sets how long snapshots are kept. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl >= 0 {
			o.ttl = ttl
		}
	}
}

// WithKeyPrefix sets the Redis key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.keyPrefix = prefix
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

func newOptions(opts []Option) *options {
	o := &options{
		ttl:       DefaultTTL,
		keyPrefix: DefaultKeyPrefix,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// record is the stored form of a snapshot. Info drops the error value when
// encoded, so the failure code travels separately.
type record struct {
	command.Info
	Failure *command.Failure `json:"failure,omitempty"`
}

func encode(info command.Info) ([]byte, error) {
	rec := record{Info: info}
	if f, ok := info.Failure(); ok {
		rec.Failure = f
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.Join(ErrEncode, err)
	}
	return data, nil
}

func decode(data []byte) (command.Info, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return command.Info{}, errors.Join(ErrDecode, err)
	}
	info := rec.Info
	if info.Error != "" {
		info.Err = &storedError{msg: info.Error, failure: rec.Failure}
	}
	return info, nil
}

// storedError stands in for a failure read back from a store. It keeps the
// original message and still matches command.ErrExecutionFailed and *command.Failure.
type storedError struct {
	msg     string
	failure *command.Failure
}

func (e *storedError) Error() string { return e.msg }

func (e *storedError) Is(target error) bool { return target == command.ErrExecutionFailed }

func (e *storedError) Unwrap() error {
	if e.failure == nil {
		return nil
	}
	return e.failure
}
