// Package archive keeps snapshots of finished commands after the runner has
// evicted them.
//
// The runner forgets a terminal command once its retention expires. When a
// caller needs the outcome later (a postmortem, a status page, a late poll), an
// archiving observer copies every terminal snapshot into a Store:
//
//	store := archive.NewMemoryStore(archive.WithTTL(time.Hour))
//	obs, err := archive.Observer(store, archive.OnlyFailed())
//	if err != nil {
//		return err
//	}
//	r := runner.New(runner.WithObserver(obs))
//
//	// later, after eviction
//	info, err := store.Get(ctx, id)
//	if errors.Is(err, archive.ErrNotFound) { ... }
//
// Three stores are provided: MemoryStore for tests and single-process use,
// RedisStore (JSON values with a key TTL) and PostgresStore (JSONB rows with an
// expiry column cleared by Purge). The Postgres table ships as an embedded goose
// migration applied by Migrate. NewObserverFromConfig picks a store from Config.
//
// Decoded snapshots keep the failure message in Info.Error and expose an Info.Err
// that matches command.ErrExecutionFailed and, for domain failures, unwraps to
// *command.Failure.
package archive
