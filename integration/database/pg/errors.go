package pg

import "errors"

var (
	ErrEmptyConnectionString = errors.New("pg: empty connection string")
	ErrFailedToParseConfig   = errors.New("pg: failed to parse connection string")
	ErrFailedToCreatePool    = errors.New("pg: failed to create connection pool")
	ErrDatabaseNotReady      = errors.New("pg: database not ready")
	ErrHealthcheckFailed     = errors.New("pg: healthcheck failed")
	ErrMigrationsDirNotFound = errors.New("pg: migrations directory not found")
	ErrMigrationFailed       = errors.New("pg: migration failed")
)
