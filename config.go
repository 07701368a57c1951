package jobcore

import (
	"fmt"
	"time"

	"github.com/dmitrymomot/jobcore/pkg/backoff"
)

// Backend selects the job provider implementation.
type Backend string

const (
	BackendLocal Backend = "local"
	BackendRiver Backend = "river"
	BackendRedis Backend = "redis"
)

// Config selects and tunes the job backend. Parse it with caarlos0/env.
type Config struct {
	Backend       Backend        `env:"JOBS_BACKEND" envDefault:"local"`
	SchedulesFile string         `env:"JOBS_SCHEDULES_FILE"`
	RedisPrefix   string         `env:"JOBS_REDIS_PREFIX" envDefault:"jobcore"`
	Backoff       backoff.Config `envPrefix:"JOBS_BACKOFF_"`

	Concurrency  int `env:"JOBS_CONCURRENCY" envDefault:"10"`
	MaxQueueSize int `env:"JOBS_MAX_QUEUE_SIZE" envDefault:"10000"`
	MaxAttempts  int `env:"JOBS_MAX_ATTEMPTS" envDefault:"3"`

	PollInterval     time.Duration `env:"JOBS_POLL_INTERVAL" envDefault:"100ms"`
	WaitPollInterval time.Duration `env:"JOBS_WAIT_POLL_INTERVAL" envDefault:"100ms"`
	JobTimeout       time.Duration `env:"JOBS_JOB_TIMEOUT" envDefault:"5m"`
	Retention        time.Duration `env:"JOBS_RETENTION" envDefault:"24h"`

	// Migrate applies the River schema before the River backend starts.
	Migrate bool `env:"JOBS_MIGRATE" envDefault:"true"`
}

// Validate checks the backend name and the backoff settings.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendLocal, BackendRiver, BackendRedis:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	if _, err := c.Backoff.Strategy(); err != nil {
		return err
	}
	return nil
}
