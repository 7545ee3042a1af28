package event_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cmdrunner/core/event"
)

type CommandFinished struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

func TestBus_Publish(t *testing.T) {
	t.Parallel()

	t.Run("delivers typed payload", func(t *testing.T) {
		t.Parallel()

		bus := event.NewBus()
		var got CommandFinished
		_, err := bus.Subscribe(event.NewHandlerFunc(func(ctx context.Context, evt CommandFinished) error {
			got = evt
			return nil
		}))
		require.NoError(t, err)

		err = bus.Publish(context.Background(), "CommandFinished", CommandFinished{ID: "1", State: "completed"})
		require.NoError(t, err)
		assert.Equal(t, CommandFinished{ID: "1", State: "completed"}, got)
	})

	t.Run("decodes raw json", func(t *testing.T) {
		t.Parallel()

		bus := event.NewBus()
		var got CommandFinished
		_, err := bus.Subscribe(event.NewHandler("finished", func(ctx context.Context, evt CommandFinished) error {
			got = evt
			return nil
		}))
		require.NoError(t, err)

		require.NoError(t, bus.Publish(context.Background(), "finished", []byte(`{"id":"2","state":"error"}`)))
		assert.Equal(t, "error", got.State)
	})

	t.Run("runs remaining handlers after failure", func(t *testing.T) {
		t.Parallel()

		bus := event.NewBus()
		var calls []string
		boom := errors.New("boom")

		_, _ = bus.Subscribe(event.NewHandler("finished", func(ctx context.Context, evt CommandFinished) error {
			calls = append(calls, "first")
			return boom
		}))
		_, _ = bus.Subscribe(event.NewHandler("finished", func(ctx context.Context, evt CommandFinished) error {
			calls = append(calls, "second")
			panic("observer bug")
		}))
		_, _ = bus.Subscribe(event.NewHandler("finished", func(ctx context.Context, evt CommandFinished) error {
			calls = append(calls, "third")
			return nil
		}))

		err := bus.Publish(context.Background(), "finished", CommandFinished{})
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, err, event.ErrHandlerFailed)
		assert.ErrorIs(t, err, event.ErrHandlerPanicked)
		assert.Equal(t, []string{"first", "second", "third"}, calls)
		assert.Equal(t, int64(2), bus.Stats().HandlersFailed)
	})

	t.Run("wrong payload type", func(t *testing.T) {
		t.Parallel()

		bus := event.NewBus()
		_, _ = bus.Subscribe(event.NewHandler("finished", func(ctx context.Context, evt CommandFinished) error {
			return nil
		}))

		err := bus.Publish(context.Background(), "finished", 42)
		assert.ErrorIs(t, err, event.ErrPayloadType)
	})

	t.Run("wildcard", func(t *testing.T) {
		t.Parallel()

		bus := event.NewBus()
		var names []string
		_, _ = bus.Subscribe(event.NewHandler(event.Wildcard, func(ctx context.Context, evt any) error {
			names = append(names, "any")
			return nil
		}))

		require.NoError(t, bus.Publish(context.Background(), "a", 1))
		require.NoError(t, bus.Publish(context.Background(), "b", 2))
		assert.Equal(t, []string{"any", "any"}, names)
	})

	t.Run("no handlers", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, event.NewBus().Publish(context.Background(), "x", nil))
		assert.ErrorIs(t, event.NewBus(event.WithStrict()).Publish(context.Background(), "x", nil), event.ErrNoHandlers)
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, event.NewBus().Publish(ctx, "x", nil), context.Canceled)
	})
}

func TestBus_Subscribe(t *testing.T) {
	t.Parallel()

	t.Run("nil handler", func(t *testing.T) {
		t.Parallel()

		_, err := event.NewBus().Subscribe(nil)
		assert.ErrorIs(t, err, event.ErrNilHandler)
	})

	t.Run("unsubscribe", func(t *testing.T) {
		t.Parallel()

		calls := 0
		h := event.NewHandler("finished", func(ctx context.Context, evt int) error {
			calls++
			return nil
		})
		bus := event.NewBus(event.WithHandler(h))
		unsubscribe, err := bus.Subscribe(h)
		require.NoError(t, err)
		assert.Equal(t, 2, bus.Len())

		unsubscribe()
		unsubscribe()
		assert.Equal(t, 1, bus.Len())

		require.NoError(t, bus.Publish(context.Background(), "finished", 1))
		assert.Equal(t, 1, calls)
	})

	t.Run("concurrent publish and subscribe", func(t *testing.T) {
		t.Parallel()

		bus := event.NewBus()
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				unsubscribe, err := bus.Subscribe(event.NewHandler("x", func(ctx context.Context, evt int) error { return nil }))
				if err == nil {
					unsubscribe()
				}
			}()
			go func() {
				defer wg.Done()
				_ = bus.Publish(context.Background(), "x", 1)
			}()
		}
		wg.Wait()

		assert.Equal(t, 0, bus.Len())
		assert.Equal(t, int64(20), bus.Stats().EventsPublished)
	})
}
