package archive

import (
	"context"
	"embed"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/cmdrunner/integration/database/pg"
)

// MigrationsTable records applied archive migrations, apart from the
// application's own version table.
const MigrationsTable = "command_archive_migrations"

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate creates or upgrades the archive table.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	return pg.MigrateFS(ctx, pool, migrations, "migrations", MigrationsTable, logger)
}
