// Package pg provides PostgreSQL pool initialization on top of pgx.
//
// Connect parses a connection string, applies pool limits from Config and
// retries the first ping with exponential backoff:
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
// Migrate applies goose migrations from PG_MIGRATIONS_PATH. Packages that own
// tables ship them as embedded migrations and apply them with MigrateFS, each
// with its own version table:
//
//	//go:embed migrations/*.sql
//	var migrations embed.FS
//
//	err := pg.MigrateFS(ctx, pool, migrations, "migrations", "archive_migrations", log)
//
// Stores accept a Querier and resolve it per call with QuerierFromContext, so
// a caller can run several store operations inside one transaction:
//
//	tx, _ := pool.Begin(ctx)
//	ctx = pg.WithTx(ctx, tx)
//	_ = store.Save(ctx, info) // runs on tx
//
// IsNotFoundError and IsDuplicateKeyError classify common driver errors.
package pg
