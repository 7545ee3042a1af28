// Package cmdrunner is an in-process command scheduler.
//
// Commands are admitted into a runner, dispatched by priority under a
// concurrency limit, observed through a strict lifecycle and kept queryable for
// a retention window after they finish.
//
// Packages:
//   - core/command: the command model, state machine and executor contract
//   - core/runner: admission, dispatch, cancellation, retention and completion observers
//   - core/schedule: cron-driven admission of fresh commands
//   - core/event: the synchronous bus that delivers completion notifications
//   - core/health: readiness aggregation over runner and backend probes
//   - core/config, core/logger: environment configuration and slog helpers
//   - integration/archive: completion observer persisting snapshots to memory, Redis or Postgres
//   - integration/database/redis, integration/database/pg: client setup with retry and health checks
package cmdrunner
