package riverq

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
	defaultConcurrency      = 10
	defaultWaitPollInterval = 100 * time.Millisecond
)

type options struct {
	backoff          backoff.Strategy
	catalog          *event.Catalog
	schedules        *schedule.Catalog
	logger           *slog.Logger
	queues           map[string]int
	middleware       []middleware.Middleware
	concurrency      int
	maxAttempts      int
	waitPollInterval time.Duration
	jobTimeout       time.Duration
	retention        time.Duration
}

func defaultOptions() options {
	return options{
		backoff:          backoff.Default(),
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		queues:           make(map[string]int),
		concurrency:      defaultConcurrency,
		maxAttempts:      job.DefaultMaxAttempts,
		waitPollInterval: defaultWaitPollInterval,
	}
}

// Option configures a Provider.
type Option func(*options)

// WithConcurrency sets the worker count of every queue without an explicit
// size. Default: 10.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithQueue processes an extra queue with the given number of workers.
// Queues named by the event catalog are processed automatically.
func WithQueue(name string, workers int) Option {
	return func(o *options) {
		if name != "" {
			o.queues[name] = workers
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

// WithSchedules registers every schedule as a River periodic job.
func WithSchedules(c *schedule.Catalog) Option {
	return func(o *options) {
		o.schedules = c
	}
}

// WithLogger sets the logger used by the provider and the River client.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithWaitPollInterval sets how often TriggerAndWait polls the job row.
// Default: 100ms.
func WithWaitPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.waitPollInterval = d
		}
	}
}

// WithJobTimeout lets River cancel attempts running longer than d. By default
// River's timeout is disabled and middleware.Timeout bounds attempts.
func WithJobTimeout(d time.Duration) Option {
	return func(o *options) {
		o.jobTimeout = d
	}
}

// WithRetention sets how long finished job rows are kept. Zero keeps River's
// defaults.
func WithRetention(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.retention = d
		}
	}
}
