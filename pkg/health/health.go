package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultTimeout = 30 * time.Second

	// StatusHealthy indicates all checks passed.
	StatusHealthy = "healthy"
	// StatusUnhealthy indicates one or more checks failed.
	StatusUnhealthy = "unhealthy"
)

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

// Checks maps probe names to probes.
type Checks map[string]CheckFunc

// Response is the aggregated result of a run.
type Response struct {
	Checks  map[string]Check `json:"checks,omitempty"`
	Status  string           `json:"status"`
	Latency time.Duration    `json:"latency_ns"`
}

// Healthy reports whether every check passed.
func (r *Response) Healthy() bool {
	return r.Status == StatusHealthy
}

// Err returns ErrCheckFailed when any check failed.
func (r *Response) Err() error {
	if r.Healthy() {
		return nil
	}
	return ErrCheckFailed
}

// Check is the result of a single probe.
type Check struct {
	Status  string        `json:"status"`
	Error   string        `json:"error,omitempty"`
	Latency time.Duration `json:"latency_ns"`
}

type config struct {
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures a health run.
type Option func(*config)

// WithTimeout bounds a whole run. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger logs failed probes.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		timeout: defaultTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Run executes all checks in parallel and aggregates the results.
func Run(ctx context.Context, checks Checks, opts ...Option) *Response {
	return runChecks(ctx, checks, newConfig(opts...))
}

func runChecks(ctx context.Context, checks Checks, cfg *config) *Response {
	start := time.Now()
	if len(checks) == 0 {
		return &Response{Status: StatusHealthy, Latency: time.Since(start)}
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]Check, len(checks))
		g       errgroup.Group
	)

	for name, check := range checks {
		g.Go(func() error {
			result := probe(ctx, check)
			if result.Status != StatusHealthy {
				cfg.logger.WarnContext(ctx, "health check failed",
					slog.String("check", name),
					slog.String("error", result.Error),
					slog.Duration("latency", result.Latency),
				)
			}

			mu.Lock()
			results[name] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := StatusHealthy
	for _, r := range results {
		if r.Status != StatusHealthy {
			status = StatusUnhealthy
			break
		}
	}

	return &Response{
		Status:  status,
		Checks:  results,
		Latency: time.Since(start),
	}
}

// probe runs check and gives up when ctx ends, even if check ignores ctx.
func probe(ctx context.Context, check CheckFunc) Check {
	start := time.Now()
	done := make(chan error, 1)
	go func() {
		if check == nil {
			done <- errors.New("health: nil check")
			return
		}
		done <- check(ctx)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ErrCheckTimeout
	}

	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = errors.Join(ErrCheckTimeout, err)
	}

	res := Check{Status: StatusHealthy, Latency: time.Since(start)}
	if err != nil {
		res.Status = StatusUnhealthy
		res.Error = err.Error()
	}
	return res
}
