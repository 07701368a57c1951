// Command jobcore-worker runs a job processor configured from the
// environment and serves /live and /ready probes.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/jobcore"
	"github.com/dmitrymomot/jobcore/internal/server"
	"github.com/dmitrymomot/jobcore/pkg/cursor"
	"github.com/dmitrymomot/jobcore/pkg/db"
	"github.com/dmitrymomot/jobcore/pkg/dedup"
	"github.com/dmitrymomot/jobcore/pkg/event"
	"github.com/dmitrymomot/jobcore/pkg/health"
	"github.com/dmitrymomot/jobcore/pkg/job"
	"github.com/dmitrymomot/jobcore/pkg/logger"
	"github.com/dmitrymomot/jobcore/pkg/redis"
	"github.com/dmitrymomot/jobcore/pkg/tenant"
)

type config struct {
	Jobs  jobcore.Config
	DB    db.Config
	Redis redis.Config
	Log   logger.Config

	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	ConnectTimeout  time.Duration `env:"CONNECT_TIMEOUT" envDefault:"30s"`

	// TenantScope runs every handler in a Postgres transaction with the
	// tenant setting applied. Requires DATABASE_URL.
	TenantScope bool `env:"JOBS_TENANT_SCOPE" envDefault:"false"`
}

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	log := logger.New(cfg.Log, logger.JobIDExtractor(), tenant.LogExtractor())
	defer logger.Flush(2 * time.Second)

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	var (
		pool   *pgxpool.Pool
		rdb    goredis.UniversalClient
		checks = health.Checks{}
		hooks  []server.Hook
	)

	if cfg.DB.IsConfigured() {
		p, err := db.Connect(connectCtx, cfg.DB)
		if err != nil {
			return err
		}
		pool = p
		checks["postgres"] = db.Healthcheck(pool)
		if cfg.Jobs.Migrate {
			if err := cursor.Migrate(connectCtx, pool, log); err != nil {
				pool.Close()
				return err
			}
		}
	}

	if cfg.Redis.IsConfigured() {
		c, err := redis.Open(connectCtx, cfg.Redis)
		if err != nil {
			closeAll(pool, nil)
			return err
		}
		rdb = c
		checks["redis"] = redis.Healthcheck(rdb)
	}

	pipeline := jobcore.Pipeline{
		Logger:  log,
		Timeout: cfg.Jobs.JobTimeout,
		Dedup:   dedupStore(rdb),
		Observe: slowAttempts(log, cfg.Jobs.JobTimeout/2),
	}
	if cfg.TenantScope {
		if pool == nil {
			closeAll(pool, rdb)
			return errors.New("tenant scope requires DATABASE_URL")
		}
		scoper, err := tenant.NewPgScoper(pool)
		if err != nil {
			closeAll(pool, rdb)
			return err
		}
		pipeline.Scoper = scoper
	}

	provider, err := jobcore.NewProvider(connectCtx, cfg.Jobs, jobcore.Deps{
		Logger:     log,
		Pool:       pool,
		Redis:      rdb,
		Catalog:    event.DefaultCatalog(),
		Middleware: pipeline.Middleware(),
	})
	if err != nil {
		closeAll(pool, rdb)
		return err
	}
	provider.RegisterHandler(event.SystemHeartbeat, heartbeat(log))
	checks["jobs"] = job.Healthcheck(provider)

	hooks = append(hooks, func(ctx context.Context) error {
		if err := provider.Stop(ctx); err != nil && !errors.Is(err, job.ErrNotStarted) {
			return err
		}
		return nil
	})
	if closer, ok := pipeline.Dedup.(*dedup.Memory); ok {
		hooks = append(hooks, func(context.Context) error { return closer.Close() })
	}
	if rdb != nil {
		hooks = append(hooks, redis.Shutdown(rdb))
	}
	if pool != nil {
		hooks = append(hooks, db.Shutdown(pool))
	}

	return server.Run(ctx, server.Config{
		Handler:         health.Router(checks, health.WithLogger(log)),
		Logger:          log,
		Address:         cfg.HTTPAddr,
		ShutdownTimeout: cfg.ShutdownTimeout,
		StartupHooks:    []server.Hook{provider.Start},
		ShutdownHooks:   hooks,
	})
}

// dedupStore marks processed jobs in Redis when it is available so the marks
// are shared by every worker.
func dedupStore(rdb goredis.UniversalClient) dedup.Store {
	if rdb != nil {
		return dedup.NewRedis(rdb, dedup.WithPrefix("jobcore:dedup"))
	}
	return dedup.NewMemory()
}

func slowAttempts(log *slog.Logger, threshold time.Duration) func(job.JobContext, time.Duration, error) {
	return func(jc job.JobContext, d time.Duration, _ error) {
		if threshold > 0 && d > threshold {
			log.Warn("slow job attempt",
				slog.String("job_id", jc.ID),
				slog.String("event", jc.Name),
				slog.Duration("duration", d),
			)
		}
	}
}

func heartbeat(log *slog.Logger) job.Handler {
	return job.HandlerFunc(func(ctx context.Context, jc job.JobContext, _ event.HeartbeatPayload) (any, error) {
		log.DebugContext(ctx, "heartbeat", slog.Int("attempt", jc.Attempt))
		return map[string]any{"at": time.Now().UTC()}, nil
	})
}

func closeAll(pool *pgxpool.Pool, rdb goredis.UniversalClient) {
	if rdb != nil {
		_ = rdb.Close()
	}
	if pool != nil {
		pool.Close()
	}
}
