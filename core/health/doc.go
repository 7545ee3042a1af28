// Package health aggregates dependency probes into liveness and readiness checks.
//
// Probes share the func(context.Context) error shape returned by
// runner.Runner.Healthcheck, redis.Healthcheck and pg.Healthcheck:
//
//	checker := health.New(health.WithTimeout(2 * time.Second))
//	checker.Register("runner", r.Healthcheck)
//	checker.Register("redis", redis.Healthcheck(client))
//	checker.Register("postgres", pg.Healthcheck(pool))
//
//	if err := checker.Readiness(ctx); errors.Is(err, health.ErrNotReady) {
//		// err lists every failing probe by name
//	}
//
// Each probe runs with its own timeout; a panicking probe counts as a failure.
package health
