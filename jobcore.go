package jobcore

import (
	"context"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/jobcore/pkg/event"
	"github.com/dmitrymomot/jobcore/pkg/job"
	"github.com/dmitrymomot/jobcore/pkg/job/local"
	"github.com/dmitrymomot/jobcore/pkg/job/redisq"
	"github.com/dmitrymomot/jobcore/pkg/job/riverq"
	"github.com/dmitrymomot/jobcore/pkg/middleware"
	"github.com/dmitrymomot/jobcore/pkg/schedule"
)

// Provider is a job provider together with its processor lifecycle.
type Provider interface {
	job.Provider
	job.Runner
}

// Deps are the shared resources a backend may need. Pool is required by the
// river backend and Redis by the redis backend.
type Deps struct {
	Logger     *slog.Logger
	Pool       *pgxpool.Pool
	Redis      redis.UniversalClient
	Catalog    *event.Catalog
	Schedules  *schedule.Catalog
	Middleware []middleware.Middleware
}

// NewProvider builds the backend selected by cfg. Handlers are registered
// on the result; switching backends needs no other code change.
//
// Example:
//
//	p, err := jobcore.NewProvider(ctx, cfg, jobcore.Deps{
//	    Logger:     log,
//	    Pool:       pool,
//	    Catalog:    event.DefaultCatalog(),
//	    Middleware: jobcore.DefaultPipeline(log, scoper),
//	})
func NewProvider(ctx context.Context, cfg Config, deps Deps) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	strategy, err := cfg.Backoff.Strategy()
	if err != nil {
		return nil, err
	}

	log := deps.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log = log.With(slog.String("component", "jobs"), slog.String("backend", string(cfg.Backend)))

	schedules := deps.Schedules
	if schedules == nil && cfg.SchedulesFile != "" {
		schedules, err = schedule.LoadFile(cfg.SchedulesFile, deps.Catalog)
		if err != nil {
			return nil, err
		}
	}

	switch cfg.Backend {
	case BackendRiver:
		if deps.Pool == nil {
			return nil, ErrPoolRequired
		}
		if cfg.Migrate {
			if err := riverq.Migrate(ctx, deps.Pool, log); err != nil {
				return nil, err
			}
		}
		p, err := riverq.New(deps.Pool,
			riverq.WithConcurrency(cfg.Concurrency),
			riverq.WithDefaultMaxAttempts(cfg.MaxAttempts),
			riverq.WithBackoff(strategy),
			riverq.WithRetention(cfg.Retention),
			riverq.WithWaitPollInterval(cfg.WaitPollInterval),
			riverq.WithCatalog(deps.Catalog),
			riverq.WithSchedules(schedules),
			riverq.WithMiddleware(deps.Middleware...),
			riverq.WithLogger(log),
		)
		if err != nil {
			return nil, err
		}
		return p, nil

	case BackendRedis:
		if deps.Redis == nil {
			return nil, ErrRedisRequired
		}
		p, err := redisq.New(deps.Redis,
			redisq.WithPrefix(cfg.RedisPrefix),
			redisq.WithConcurrency(cfg.Concurrency),
			redisq.WithPollInterval(cfg.PollInterval),
			redisq.WithWaitPollInterval(cfg.WaitPollInterval),
			redisq.WithDefaultMaxAttempts(cfg.MaxAttempts),
			redisq.WithBackoff(strategy),
			redisq.WithRetention(cfg.Retention),
			redisq.WithCatalog(deps.Catalog),
			redisq.WithSchedules(schedules),
			redisq.WithMiddleware(deps.Middleware...),
			redisq.WithLogger(log),
		)
		if err != nil {
			return nil, err
		}
		return p, nil

	default:
		if schedules != nil && len(schedules.Schedules) > 0 {
			log.WarnContext(ctx, "local backend does not run schedules",
				slog.Int("schedules", len(schedules.Schedules)),
			)
		}
		return local.New(
			local.WithConcurrency(cfg.Concurrency),
			local.WithPollInterval(cfg.PollInterval),
			local.WithMaxQueueSize(cfg.MaxQueueSize),
			local.WithDefaultMaxAttempts(cfg.MaxAttempts),
			local.WithBackoff(strategy),
			local.WithRetention(cfg.Retention),
			local.WithCatalog(deps.Catalog),
			local.WithMiddleware(deps.Middleware...),
			local.WithLogger(log),
		), nil
	}
}
