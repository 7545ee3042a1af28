package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/cmdrunner/core/command"
	"github.com/dmitrymomot/cmdrunner/core/logger"
)

// RedisStore keeps snapshots as JSON strings under prefix+id, expiring with the TTL.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	logger    *slog.Logger
}

// NewRedisStore creates a store backed by client.
func NewRedisStore(client redis.UniversalClient, opts ...Option) (*RedisStore, error) {
	if client == nil {
		return nil, ErrNilStore
	}
	o := newOptions(opts)
	return &RedisStore{
		client:    client,
		keyPrefix: o.keyPrefix,
		ttl:       o.ttl,
		logger:    o.logger,
	}, nil
}

func (s *RedisStore) Save(ctx context.Context, info command.Info) error {
	data, err := encode(info)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(info.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("archive: save %s: %w", info.ID, err)
	}

	s.logger.DebugContext(ctx, "archived command", logger.CommandID(info.ID), logger.State(info.State))
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (command.Info, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return command.Info{}, ErrNotFound
	}
	if err != nil {
		return command.Info{}, fmt.Errorf("archive: get %s: %w", id, err)
	}
	return decode(data)
}

func (s *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("archive: delete %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) key(id uuid.UUID) string {
	return s.keyPrefix + id.String()
}
