package archive

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/cmdrunner/core/command"
	"github.com/dmitrymomot/cmdrunner/core/logger"
)

// MemoryStore keeps encoded snapshots in process memory. Expired entries are
// hidden from Get and dropped by Purge.
type MemoryStore struct {
	mu      sync.RWMutex
	items   map[uuid.UUID]memoryItem
	ttl     time.Duration
	logger  *slog.Logger
	nowFunc func() time.Time
}

type memoryItem struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := newOptions(opts)
	return &MemoryStore{
		items:   make(map[uuid.UUID]memoryItem),
		ttl:     o.ttl,
		logger:  o.logger,
		nowFunc: time.Now,
	}
}

func (s *MemoryStore) Save(ctx context.Context, info command.Info) error {
	data, err := encode(info)
	if err != nil {
		return err
	}

	item := memoryItem{data: data}
	if s.ttl > 0 {
		item.expiresAt = s.nowFunc().Add(s.ttl)
	}

	s.mu.Lock()
	s.items[info.ID] = item
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "archived command", logger.CommandID(info.ID), logger.State(info.State))
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (command.Info, error) {
	s.mu.RLock()
	item, ok := s.items[id]
	s.mu.RUnlock()

	if !ok || item.expired(s.nowFunc()) {
		return command.Info{}, ErrNotFound
	}
	return decode(item.data)
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored snapshots, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Purge drops expired snapshots and returns how many were removed.
func (s *MemoryStore) Purge(_ context.Context) (int64, error) {
	now := s.nowFunc()

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, item := range s.items {
		if item.expired(now) {
			delete(s.items, id)
			n++
		}
	}
	return n, nil
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && !now.Before(i.expiresAt)
}
