package health_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cmdrunner/core/health"
	"github.com/dmitrymomot/cmdrunner/core/runner"
)

func TestChecker(t *testing.T) {
	t.Parallel()

	t.Run("no probes is ready", func(t *testing.T) {
		t.Parallel()

		c := health.New()
		assert.NoError(t, c.Liveness(context.Background()))
		assert.NoError(t, c.Readiness(context.Background()))
	})

	t.Run("joins failures", func(t *testing.T) {
		t.Parallel()

		errDB := errors.New("connection refused")
		c := health.New()
		c.Register("ok", func(context.Context) error { return nil })
		c.Register("db", func(context.Context) error { return errDB })
		c.Register("cache", func(context.Context) error { panic("boom") })

		err := c.Readiness(context.Background())
		require.ErrorIs(t, err, health.ErrNotReady)
		assert.ErrorIs(t, err, errDB)
		assert.Contains(t, err.Error(), "db: connection refused")
		assert.Contains(t, err.Error(), "cache: probe panicked: boom")
		assert.NotContains(t, err.Error(), "ok:")
	})

	t.Run("replaces probe", func(t *testing.T) {
		t.Parallel()

		c := health.New()
		c.Register("db", func(context.Context) error { return errors.New("down") })
		c.Register("db", func(context.Context) error { return nil })
		assert.NoError(t, c.Readiness(context.Background()))
	})

	t.Run("probe timeout", func(t *testing.T) {
		t.Parallel()

		c := health.New(health.WithTimeout(20 * time.Millisecond))
		c.Register("slow", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})

		err := c.Readiness(context.Background())
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("runner probe", func(t *testing.T) {
		t.Parallel()

		r := runner.New()
		c := health.New()
		c.Register("runner", r.Healthcheck)
		require.NoError(t, c.Readiness(context.Background()))

		require.NoError(t, r.Close())
		assert.ErrorIs(t, c.Readiness(context.Background()), runner.ErrHealthcheckFailed)
	})
}
