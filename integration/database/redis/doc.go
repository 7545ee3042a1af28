// Package redis provides Redis client initialization and health checking.
//
// Connect parses a redis:// or rediss:// URL, retries the initial ping with
// exponential backoff and returns a ready client:
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	store := archive.NewRedisStore(client, archive.WithTTL(24*time.Hour))
//
// Healthcheck returns a probe suitable for readiness endpoints:
//
//	check := redis.Healthcheck(client)
//	if err := check(ctx); errors.Is(err, redis.ErrHealthcheckFailed) { ... }
//
// Errors are stable sentinels checked with errors.Is: ErrEmptyConnectionURL,
// ErrFailedToParseRedisConnString, ErrRedisNotReady and ErrHealthcheckFailed.
package redis
