package schedule

import "time"

// Config holds scheduler settings, parsed from the environment with caarlos0/env.
type Config struct {
	Timezone        string        `env:"SCHEDULE_TIMEZONE" envDefault:"UTC"`
	ShutdownTimeout time.Duration `env:"SCHEDULE_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// DefaultConfig returns the defaults used when no option overrides them.
func DefaultConfig() Config {
	return Config{
		Timezone:        "UTC",
		ShutdownTimeout: 30 * time.Second,
	}
}
