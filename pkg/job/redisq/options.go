package redisq

import (
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/jobcore/pkg/backoff"
	"github.com/dmitrymomot/jobcore/pkg/event"
	"github.com/dmitrymomot/jobcore/pkg/job"
	"github.com/dmitrymomot/jobcore/pkg/middleware"
	"github.com/dmitrymomot/jobcore/pkg/schedule"
)

const (
	defaultPrefix           = "jobcore"
	defaultConcurrency      = 10
	defaultPollInterval     = 200 * time.Millisecond
	defaultWaitPollInterval = 100 * time.Millisecond
	defaultRetention        = 24 * time.Hour
)

type options struct {
	backoff          backoff.Strategy
	catalog          *event.Catalog
	schedules        *schedule.Catalog
	logger           *slog.Logger
	middleware       []middleware.Middleware
	prefix           string
	concurrency      int
	maxAttempts      int
	pollInterval     time.Duration
	waitPollInterval time.Duration
	retention        time.Duration
}

func defaultOptions() options {
	return options{
		backoff:          backoff.Default(),
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		prefix:           defaultPrefix,
		concurrency:      defaultConcurrency,
		maxAttempts:      job.DefaultMaxAttempts,
		pollInterval:     defaultPollInterval,
		waitPollInterval: defaultWaitPollInterval,
		retention:        defaultRetention,
	}
}

// Option configures a Provider.
type Option func(*options)

// WithPrefix namespaces every key. Default: "jobcore".
func WithPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}

// WithConcurrency bounds the number of jobs this process runs at once.
// Default: 10.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithPollInterval sets how often due jobs are claimed. Default: 200ms.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithWaitPollInterval sets how often TriggerAndWait reads the job.
// Default: 100ms.
func WithWaitPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.waitPollInterval = d
		}
	}
}

// WithDefaultMaxAttempts sets the attempt budget for jobs whose sender and
// event definition leave it unset. Default: 3.
func WithDefaultMaxAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithBackoff sets the retry delay strategy. Default: backoff.Default().
func WithBackoff(s backoff.Strategy) Option {
	return func(o *options) {
		o.backoff = s
	}
}

// WithRetention sets how long finished jobs and their idempotency keys are
// kept. Zero keeps them forever. Default: 24h.
func WithRetention(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.retention = d
		}
	}
}

// WithMiddleware wraps every handler. The first middleware is outermost.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(o *options) {
		o.middleware = append(o.middleware, mws...)
	}
}

// WithCatalog restricts Send to known events and applies per-event defaults.
func WithCatalog(c *event.Catalog) Option {
	return func(o *options) {
		o.catalog = c
	}
}

// WithSchedules runs every schedule on the provider's cron.
func WithSchedules(c *schedule.Catalog) Option {
	return func(o *options) {
		o.schedules = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
