package runner

import "time"

// Config holds runner settings, parsed from the environment with caarlos0/env.
type Config struct {
	Concurrency     int           `env:"RUNNER_CONCURRENCY" envDefault:"1"`
	Retention       time.Duration `env:"RUNNER_RETENTION" envDefault:"1m"`
	SweepInterval   time.Duration `env:"RUNNER_SWEEP_INTERVAL" envDefault:"250ms"`
	ShutdownTimeout time.Duration `env:"RUNNER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// DefaultConfig returns the defaults used when no option overrides them.
func DefaultConfig() Config {
	return Config{
		Concurrency:     DefaultConcurrency,
		Retention:       DefaultRetention,
		SweepInterval:   DefaultSweepInterval,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}
