package local

import (
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/jobcore/pkg/backoff"
	"github.com/dmitrymomot/jobcore/pkg/event"
	"github.com/dmitrymomot/jobcore/pkg/job"
	"github.com/dmitrymomot/jobcore/pkg/middleware"
)

const (
	defaultConcurrency  = 10
	defaultPollInterval = 100 * time.Millisecond
	defaultMaxQueueSize = 10000
	defaultRetention    = 24 * time.Hour
)

type options struct {
	backoff      backoff.Strategy
	catalog      *event.Catalog
	logger       *slog.Logger
	middleware   []middleware.Middleware
	concurrency  int
	pollInterval time.Duration
	maxQueueSize int
	maxAttempts  int
	retention    time.Duration
}

func defaultOptions() options {
	return options{
		backoff:      backoff.Default(),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		concurrency:  defaultConcurrency,
		pollInterval: defaultPollInterval,
		maxQueueSize: defaultMaxQueueSize,
		maxAttempts:  job.DefaultMaxAttempts,
		retention:    defaultRetention,
	}
}

// Option configures a Provider.
type Option func(*options)

// WithConcurrency sets how many jobs may run at once. Default: 10.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithPollInterval sets how often the processor looks for due jobs. Default: 100ms.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithMaxQueueSize caps the number of unfinished jobs. Sends beyond the cap
// fail with job.ErrQueueFull. Default: 10000.
func WithMaxQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxQueueSize = n
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
// backoff.None() makes failed jobs eligible again on the next tick.
func WithBackoff(s backoff.Strategy) Option {
	return func(o *options) {
		o.backoff = s
	}
}

// WithRetention sets how long finished jobs stay queryable. Zero keeps them
// forever. Default: 24h.
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

// WithCatalog restricts Send to known events and applies per-event defaults
// for queue, attempts and priority.
func WithCatalog(c *event.Catalog) Option {
	return func(o *options) {
		o.catalog = c
	}
}

// WithLogger sets the processor logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
