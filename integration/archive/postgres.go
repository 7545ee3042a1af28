package archive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/cmdrunner/core/command"
	"github.com/dmitrymomot/cmdrunner/core/logger"
	"github.com/dmitrymomot/cmdrunner/integration/database/pg"
)

const (
	saveQuery = `INSERT INTO command_archive (id, name, state, completed_at, expires_at, info)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	state = EXCLUDED.state,
	completed_at = EXCLUDED.completed_at,
	expires_at = EXCLUDED.expires_at,
	info = EXCLUDED.info`

	getQuery = `SELECT info FROM command_archive
WHERE id = $1 AND (expires_at IS NULL OR expires_at > now())`

	deleteQuery = `DELETE FROM command_archive WHERE id = $1`

	purgeQuery = `DELETE FROM command_archive WHERE expires_at IS NOT NULL AND expires_at <= now()`
)

// PostgresStore keeps snapshots in the command_archive table created by
// Migrate. Operations join a transaction attached to the context with pg.WithTx.
type PostgresStore struct {
	db     pg.Querier
	ttl    time.Duration
	logger *slog.Logger
}

// NewPostgresStore creates a store on db. Run Migrate before first use.
func NewPostgresStore(db pg.Querier, opts ...Option) (*PostgresStore, error) {
	if db == nil {
		return nil, ErrNilStore
	}
	o := newOptions(opts)
	return &PostgresStore{
		db:     db,
		ttl:    o.ttl,
		logger: o.logger,
	}, nil
}

func (s *PostgresStore) Save(ctx context.Context, info command.Info) error {
	data, err := encode(info)
	if err != nil {
		return err
	}

	var completedAt, expiresAt *time.Time
	if !info.CompleteTime.IsZero() {
		completedAt = &info.CompleteTime
	}
	if s.ttl > 0 {
		t := time.Now().Add(s.ttl)
		expiresAt = &t
	}

	_, err = pg.QuerierFromContext(ctx, s.db).Exec(ctx, saveQuery,
		info.ID.String(), info.Name, info.State.String(), completedAt, expiresAt, string(data))
	if err != nil {
		return fmt.Errorf("archive: save %s: %w", info.ID, err)
	}

	s.logger.DebugContext(ctx, "archived command", logger.CommandID(info.ID), logger.State(info.State))
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (command.Info, error) {
	var data []byte
	err := pg.QuerierFromContext(ctx, s.db).QueryRow(ctx, getQuery, id.String()).Scan(&data)
	if pg.IsNotFoundError(err) {
		return command.Info{}, ErrNotFound
	}
	if err != nil {
		return command.Info{}, fmt.Errorf("archive: get %s: %w", id, err)
	}
	return decode(data)
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := pg.QuerierFromContext(ctx, s.db).Exec(ctx, deleteQuery, id.String()); err != nil {
		return fmt.Errorf("archive: delete %s: %w", id, err)
	}
	return nil
}

// Purge deletes expired rows and returns how many were removed.
func (s *PostgresStore) Purge(ctx context.Context) (int64, error) {
	tag, err := pg.QuerierFromContext(ctx, s.db).Exec(ctx, purgeQuery)
	if err != nil {
		return 0, fmt.Errorf("archive: purge: %w", err)
	}
	return tag.RowsAffected(), nil
}
