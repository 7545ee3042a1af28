package archive

import "time"

// Backend names accepted by Config.Backend.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

const (
	DefaultTTL         = 24 * time.Hour
	DefaultKeyPrefix   = "cmdrunner:archive:"
	DefaultSaveTimeout = 5 * time.Second
)

// Config selects and tunes the archive backend.
type Config struct {
	Backend     string        `env:"ARCHIVE_BACKEND" envDefault:"memory"`
	TTL         time.Duration `env:"ARCHIVE_TTL" envDefault:"24h"`
	KeyPrefix   string        `env:"ARCHIVE_KEY_PREFIX" envDefault:"cmdrunner:archive:"`
	SaveTimeout time.Duration `env:"ARCHIVE_SAVE_TIMEOUT" envDefault:"5s"`
	OnlyFailed  bool          `env:"ARCHIVE_ONLY_FAILED" envDefault:"false"`
}

// DefaultConfig returns the in-memory configuration.
func DefaultConfig() Config {
	return Config{
		Backend:     BackendMemory,
		TTL:         DefaultTTL,
		KeyPrefix:   DefaultKeyPrefix,
		SaveTimeout: DefaultSaveTimeout,
	}
}
