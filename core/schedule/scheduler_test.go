package schedule_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cmdrunner/core/command"
	"github.com/dmitrymomot/cmdrunner/core/runner"
	"github.com/dmitrymomot/cmdrunner/core/schedule"
)

// MockAdmitter is a mock implementation of schedule.Admitter.
type MockAdmitter struct {
	mock.Mock
}

func (m *MockAdmitter) Admit(cmd *command.Command) (uuid.UUID, error) {
	args := m.Called(cmd)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockAdmitter) Lookup(id uuid.UUID) (command.Info, bool) {
	args := m.Called(id)
	return args.Get(0).(command.Info), args.Bool(1)
}

type gate struct {
	ch   chan struct{}
	once sync.Once
}

func (g *gate) open() { g.once.Do(func() { close(g.ch) }) }

func noop() schedule.Factory {
	exec := command.NewAction("noop", func(ctx context.Context, args struct{}) error { return nil })
	return func(ctx context.Context) (*command.Command, error) {
		return command.New(exec)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("nil admitter", func(t *testing.T) {
		t.Parallel()

		s, err := schedule.New(nil)
		assert.ErrorIs(t, err, schedule.ErrNilAdmitter)
		assert.Nil(t, s)
	})

	t.Run("from config", func(t *testing.T) {
		t.Parallel()

		s, err := schedule.NewFromConfig(schedule.DefaultConfig(), new(MockAdmitter))
		require.NoError(t, err)
		assert.NotNil(t, s)
	})

	t.Run("unknown timezone", func(t *testing.T) {
		t.Parallel()

		cfg := schedule.DefaultConfig()
		cfg.Timezone = "Mars/Olympus_Mons"
		_, err := schedule.NewFromConfig(cfg, new(MockAdmitter))
		assert.Error(t, err)
	})
}

func TestScheduler_Add(t *testing.T) {
	t.Parallel()

	t.Run("valid specs", func(t *testing.T) {
		t.Parallel()

		s, err := schedule.New(new(MockAdmitter))
		require.NoError(t, err)

		require.NoError(t, s.Add("five-fields", "*/5 * * * *", noop()))
		require.NoError(t, s.Add("six-fields", "30 */5 * * * *", noop()))
		require.NoError(t, s.Add("descriptor", "@every 1h", noop()))

		entries := s.Entries()
		require.Len(t, entries, 3)
		assert.Equal(t, "descriptor", entries[0].Name)
		assert.Equal(t, "five-fields", entries[1].Name)
		assert.Equal(t, "six-fields", entries[2].Name)
		assert.Equal(t, 3, s.Stats().Entries)
	})

	t.Run("invalid spec", func(t *testing.T) {
		t.Parallel()

		s, err := schedule.New(new(MockAdmitter))
		require.NoError(t, err)

		assert.ErrorIs(t, s.Add("bad", "every tuesday", noop()), schedule.ErrInvalidSpec)
	})

	t.Run("nil factory", func(t *testing.T) {
		t.Parallel()

		s, err := schedule.New(new(MockAdmitter))
		require.NoError(t, err)

		assert.ErrorIs(t, s.Add("nil", "@hourly", nil), schedule.ErrNilFactory)
	})

	t.Run("duplicate name", func(t *testing.T) {
		t.Parallel()

		s, err := schedule.New(new(MockAdmitter))
		require.NoError(t, err)

		require.NoError(t, s.Add("dup", "@hourly", noop()))
		assert.ErrorIs(t, s.Add("dup", "@daily", noop()), schedule.ErrAlreadyRegistered)
	})

	t.Run("remove", func(t *testing.T) {
		t.Parallel()

		s, err := schedule.New(new(MockAdmitter))
		require.NoError(t, err)

		require.NoError(t, s.Add("gone", "@hourly", noop()))
		assert.True(t, s.Remove("gone"))
		assert.False(t, s.Remove("gone"))
		assert.Empty(t, s.Entries())

		_, err = s.Trigger(context.Background(), "gone")
		assert.ErrorIs(t, err, schedule.ErrEntryNotFound)
	})
}

func TestScheduler_Trigger(t *testing.T) {
	t.Parallel()

	t.Run("admits into runner", func(t *testing.T) {
		t.Parallel()

		r := runner.New()
		defer r.Close()

		s, err := schedule.New(r)
		require.NoError(t, err)
		require.NoError(t, s.Add("noop", "@hourly", noop()))

		id, err := s.Trigger(context.Background(), "noop")
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		info, err := r.Wait(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, command.StateCompleted, info.State)
		assert.Equal(t, "noop", info.Name)

		assert.Equal(t, id, s.Entries()[0].LastCommandID)
		assert.Equal(t, int64(1), s.Stats().CommandsAdmitted)
	})

	t.Run("skip if running", func(t *testing.T) {
		t.Parallel()

		r := runner.New()
		g := &gate{ch: make(chan struct{})}
		defer r.Close()
		defer g.open()

		slow := command.NewAction("slow", func(ctx context.Context, args struct{}) error {
			<-g.ch
			return nil
		})

		s, err := schedule.New(r)
		require.NoError(t, err)
		require.NoError(t, s.Add("slow", "@hourly", func(ctx context.Context) (*command.Command, error) {
			return command.New(slow)
		}, schedule.WithSkipIfRunning()))

		first, err := s.Trigger(context.Background(), "slow")
		require.NoError(t, err)

		_, err = s.Trigger(context.Background(), "slow")
		assert.ErrorIs(t, err, schedule.ErrStillRunning)
		assert.Equal(t, int64(1), s.Stats().FiresSkipped)

		g.open()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, err = r.Wait(ctx, first)
		require.NoError(t, err)

		second, err := s.Trigger(context.Background(), "slow")
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("overlap allowed by default", func(t *testing.T) {
		t.Parallel()

		id := uuid.New()
		admitter := new(MockAdmitter)
		admitter.On("Admit", mock.Anything).Return(id, nil).Twice()
		defer admitter.AssertExpectations(t)

		s, err := schedule.New(admitter)
		require.NoError(t, err)
		require.NoError(t, s.Add("noop", "@hourly", noop()))

		_, err = s.Trigger(context.Background(), "noop")
		require.NoError(t, err)
		_, err = s.Trigger(context.Background(), "noop")
		require.NoError(t, err)

		admitter.AssertNotCalled(t, "Lookup", mock.Anything)
	})

	t.Run("factory failure", func(t *testing.T) {
		t.Parallel()

		admitter := new(MockAdmitter)
		defer admitter.AssertExpectations(t)

		boom := errors.New("boom")
		s, err := schedule.New(admitter)
		require.NoError(t, err)
		require.NoError(t, s.Add("broken", "@hourly", func(ctx context.Context) (*command.Command, error) {
			return nil, boom
		}))

		_, err = s.Trigger(context.Background(), "broken")
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, int64(1), s.Stats().FiresFailed)
	})

	t.Run("admission failure", func(t *testing.T) {
		t.Parallel()

		admitter := new(MockAdmitter)
		admitter.On("Admit", mock.Anything).Return(uuid.Nil, runner.ErrRunnerClosed).Once()
		defer admitter.AssertExpectations(t)

		s, err := schedule.New(admitter)
		require.NoError(t, err)
		require.NoError(t, s.Add("noop", "@hourly", noop()))

		_, err = s.Trigger(context.Background(), "noop")
		assert.ErrorIs(t, err, runner.ErrRunnerClosed)
		assert.Equal(t, int64(1), s.Stats().FiresFailed)
	})
}

func TestScheduler_Lifecycle(t *testing.T) {
	t.Parallel()

	t.Run("fires on schedule", func(t *testing.T) {
		t.Parallel()

		r := runner.New()
		defer r.Close()

		var fired atomic.Int32
		exec := command.NewAction("tick", func(ctx context.Context, args struct{}) error {
			fired.Add(1)
			return nil
		})

		s, err := schedule.New(r)
		require.NoError(t, err)
		require.NoError(t, s.Add("tick", "@every 1s", func(ctx context.Context) (*command.Command, error) {
			return command.New(exec)
		}))

		require.NoError(t, s.Start())
		assert.ErrorIs(t, s.Start(), schedule.ErrSchedulerStarted)
		assert.True(t, s.Stats().IsRunning)

		require.Eventually(t, func() bool {
			return fired.Load() >= 1
		}, 3*time.Second, 20*time.Millisecond)

		require.NoError(t, s.Stop())
		assert.ErrorIs(t, s.Stop(), schedule.ErrSchedulerNotStarted)
		assert.False(t, s.Stats().IsRunning)
	})

	t.Run("run with context", func(t *testing.T) {
		t.Parallel()

		s, err := schedule.New(new(MockAdmitter))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx)() }()

		require.Eventually(t, func() bool {
			return s.Stats().IsRunning
		}, time.Second, 5*time.Millisecond)

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("scheduler did not stop")
		}
	})
}
