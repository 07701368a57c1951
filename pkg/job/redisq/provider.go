package redisq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"

	"github.com/dmitrymomot/jobcore/pkg/classify"
	"github.com/dmitrymomot/jobcore/pkg/job"
	"github.com/dmitrymomot/jobcore/pkg/middleware"
)

// ProviderName identifies the Redis backend.
const ProviderName = "redis"

var (
	_ job.Provider = (*Provider)(nil)
	_ job.Runner   = (*Provider)(nil)
)

// Provider is a job.Provider backed by Redis.
// Jobs can be sent before Start; any process sharing the prefix can work them.
type Provider struct {
	opts     options
	client   redis.UniversalClient
	keys     keys
	handlers *job.Registry
	wrap     func(job.Handler) job.Handler
	slots    *semaphore.Weighted
	cron     *cron.Cron
	now      func() time.Time

	mu       sync.Mutex
	wg       sync.WaitGroup
	started  bool
	stopLoop context.CancelFunc
	stopJobs context.CancelFunc
	loopDone chan struct{}
}

// New creates a provider on client. Schedules are validated here and start
// firing on Start.
func New(client redis.UniversalClient, opts ...Option) (*Provider, error) {
	if client == nil {
		return nil, ErrClientRequired
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	p := &Provider{
		opts:     o,
		client:   client,
		keys:     keys{prefix: o.prefix},
		handlers: job.NewRegistry(),
		wrap:     middleware.Compose(o.middleware...),
		slots:    semaphore.NewWeighted(int64(o.concurrency)),
		now:      time.Now,
	}

	c, err := p.newCron()
	if err != nil {
		return nil, err
	}
	p.cron = c
	return p, nil
}

// Name returns "redis".
func (p *Provider) Name() string { return ProviderName }

// IsConfigured reports whether the provider has a client.
func (p *Provider) IsConfigured() bool { return p != nil && p.client != nil }

// RegisterHandler binds h to an event name. Register before Start.
func (p *Provider) RegisterHandler(name string, h job.Handler) {
	p.handlers.Register(name, h)
}

// Send validates the event and stores a new job. A send whose idempotency
// key is already reserved returns the job holding it with Duplicate set.
func (p *Provider) Send(ctx context.Context, name string, payload any, opts ...job.SendOption) (job.SendResult, error) {
	if err := p.opts.catalog.Check(name); err != nil {
		return job.SendResult{}, err
	}
	tenantID, raw, err := job.EncodeTenantPayload(name, payload)
	if err != nil {
		return job.SendResult{}, err
	}

	o := job.NewSendOptions(opts...)
	def, _ := p.opts.catalog.Lookup(name)
	o.ApplyDefaults(def, p.opts.maxAttempts)

	id := uuid.Must(uuid.NewV7()).String()

	if o.IdempotencyKey != "" {
		idem := p.keys.idem(o.IdempotencyKey)
		ok, err := p.client.SetNX(ctx, idem, id, 0).Result()
		if err != nil {
			return job.SendResult{}, fmt.Errorf("redisq: reserve idempotency key: %w", err)
		}
		if !ok {
			existing, err := p.client.Get(ctx, idem).Result()
			if err != nil {
				return job.SendResult{}, fmt.Errorf("redisq: read idempotency key: %w", err)
			}
			return job.SendResult{ID: existing, Accepted: true, Duplicate: true}, nil
		}
	}

	now := p.now()
	runAt := o.RunAt(now)
	status := job.StatusPending
	if runAt.After(now) {
		status = job.StatusScheduled
	}

	j := job.Job{
		ID:             id,
		Name:           name,
		Queue:          o.Queue,
		TenantID:       tenantID,
		IdempotencyKey: o.IdempotencyKey,
		Status:         status,
		Payload:        raw,
		Tags:           o.Tags,
		MaxAttempts:    o.MaxAttempts,
		Priority:       o.Priority,
		ScheduledAt:    runAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := p.enqueue(ctx, j); err != nil {
		if o.IdempotencyKey != "" {
			p.client.Del(context.WithoutCancel(ctx), p.keys.idem(o.IdempotencyKey))
		}
		return job.SendResult{}, err
	}

	p.opts.logger.DebugContext(ctx, "job queued",
		slog.String("job_id", id),
		slog.String("event", name),
		slog.String("tenant_id", tenantID),
		slog.String("queue", j.Queue),
		slog.String("status", status.String()),
	)
	return job.SendResult{ID: id, Accepted: true}, nil
}

// enqueue stores j and adds it to its queue in one transaction.
func (p *Provider) enqueue(ctx context.Context, j job.Job) error {
	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("redisq: encode job: %w", err)
	}

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, p.keys.job(j.ID), data, 0)
		pipe.ZAdd(ctx, p.keys.queue(j.Queue, j.Priority), redis.Z{Score: score(j.ScheduledAt), Member: j.ID})
		pipe.ZAdd(ctx, p.keys.bands(), redis.Z{Score: float64(j.Priority), Member: p.keys.queue(j.Queue, j.Priority)})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisq: enqueue: %w", err)
	}
	return nil
}

// SendBatch sends every event independently.
func (p *Provider) SendBatch(ctx context.Context, events []job.BatchEvent) job.BatchSendResult {
	return job.SendEach(ctx, events, p.Send)
}

// TriggerAndWait sends a job and polls it until it finishes or timeout
// elapses. The job keeps running after a timeout.
func (p *Provider) TriggerAndWait(ctx context.Context, name string, payload any, timeout time.Duration, opts ...job.SendOption) (job.WaitResult, error) {
	timeout = job.WaitTimeout(timeout)

	res, err := p.Send(ctx, name, payload, opts...)
	if err != nil {
		return job.WaitResult{}, err
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(p.opts.waitPollInterval)
	defer ticker.Stop()

	for {
		j, err := p.Job(ctx, res.ID)
		switch {
		case err == nil:
			if j.Status.IsTerminal() {
				return j.WaitResult(), nil
			}
		case ctx.Err() != nil:
		default:
			p.opts.logger.WarnContext(ctx, "failed to poll job",
				slog.String("job_id", res.ID),
				slog.Any("error", err),
			)
		}

		select {
		case <-ctx.Done():
			return job.WaitResult{ID: res.ID, Error: classify.Classify(ctx.Err())}, nil
		case <-deadline.C:
			return job.TimedOut(res.ID, timeout), nil
		case <-ticker.C:
		}
	}
}

// Cancel cancels a job that has not started its current attempt. Removing
// the job from its queue decides the race with workers: only one side can
// remove it.
func (p *Provider) Cancel(ctx context.Context, runID string) (bool, error) {
	j, err := p.Job(ctx, runID)
	if err != nil {
		return false, err
	}
	if !j.Status.IsWaiting() {
		return false, nil
	}

	removed, err := p.client.ZRem(ctx, p.keys.queue(j.Queue, j.Priority), j.ID).Result()
	if err != nil {
		return false, fmt.Errorf("redisq: cancel: %w", err)
	}
	if removed == 0 {
		return false, nil
	}
	if fresh, err := p.Job(ctx, runID); err == nil {
		j = fresh
	}

	next, err := job.Transition(j, job.Cancelled(), p.now())
	if err != nil {
		return false, err
	}
	if err := p.save(ctx, next); err != nil {
		return false, err
	}

	p.opts.logger.InfoContext(ctx, "job cancelled",
		slog.String("job_id", runID),
		slog.String("event", next.Name),
	)
	return true, nil
}

// GetRunStatus reads the stored job.
func (p *Provider) GetRunStatus(ctx context.Context, runID string) (job.RunStatus, error) {
	j, err := p.Job(ctx, runID)
	if err != nil {
		return job.RunStatus{}, err
	}
	return j.RunStatus(), nil
}

// Job returns the stored job record.
func (p *Provider) Job(ctx context.Context, runID string) (job.Job, error) {
	data, err := p.client.Get(ctx, p.keys.job(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return job.Job{}, fmt.Errorf("%w: %s", job.ErrJobNotFound, runID)
	}
	if err != nil {
		return job.Job{}, fmt.Errorf("redisq: get job: %w", err)
	}
	return decodeJob(data)
}

func decodeJob(data []byte) (job.Job, error) {
	var j job.Job
	if err := json.Unmarshal(data, &j); err != nil {
		return job.Job{}, errors.Join(ErrCorruptJob, err)
	}
	return j, nil
}

// save writes j. Finished jobs and their idempotency keys expire after the
// retention period.
func (p *Provider) save(ctx context.Context, j job.Job) error {
	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("redisq: encode job: %w", err)
	}

	var ttl time.Duration
	if j.Status.IsTerminal() {
		ttl = p.opts.retention
	}

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, p.keys.job(j.ID), data, ttl)
		if ttl > 0 && j.IdempotencyKey != "" {
			pipe.Expire(ctx, p.keys.idem(j.IdempotencyKey), ttl)
		}
		if j.Status.IsWaiting() {
			pipe.ZAdd(ctx, p.keys.queue(j.Queue, j.Priority), redis.Z{Score: score(j.ScheduledAt), Member: j.ID})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisq: save job: %w", err)
	}
	return nil
}

// HealthCheck pings Redis and reports whether the processor is running.
func (p *Provider) HealthCheck(ctx context.Context) job.HealthStatus {
	start := time.Now()
	if !p.IsConfigured() {
		return job.HealthStatus{Error: job.ErrNotConfigured.Error(), Latency: time.Since(start)}
	}

	if err := p.client.Ping(ctx).Err(); err != nil {
		return job.HealthStatus{Error: err.Error(), Latency: time.Since(start)}
	}

	p.mu.Lock()
	started := p.started
	p.mu.Unlock()

	if !started {
		return job.HealthStatus{Error: "processor not started", Latency: time.Since(start)}
	}
	return job.HealthStatus{Healthy: true, Latency: time.Since(start)}
}

// Start launches the processor loop and the schedule cron. Jobs keep running
// until Stop; the context only bounds the call itself.
func (p *Provider) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return job.ErrAlreadyStarted
	}

	loopCtx, stopLoop := context.WithCancel(context.WithoutCancel(ctx))
	jobsCtx, stopJobs := context.WithCancel(context.WithoutCancel(ctx))
	p.stopLoop = stopLoop
	p.stopJobs = stopJobs
	p.loopDone = make(chan struct{})
	p.started = true

	go p.loop(loopCtx, jobsCtx, p.loopDone)
	p.cron.Start()

	p.opts.logger.Info("redis job processor started",
		slog.String("prefix", p.opts.prefix),
		slog.Int("concurrency", p.opts.concurrency),
		slog.Int("schedules", len(p.cron.Entries())),
		slog.Int("handlers", len(p.handlers.Names())),
	)
	return nil
}

// Stop halts the cron and the processor loop, then waits for running jobs.
// If ctx ends first the running handlers are cancelled.
func (p *Provider) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return job.ErrNotStarted
	}
	p.started = false
	stopLoop, stopJobs, loopDone := p.stopLoop, p.stopJobs, p.loopDone
	p.mu.Unlock()

	cronDone := p.cron.Stop()
	stopLoop()
	<-loopDone

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		<-cronDone.Done()
		close(done)
	}()

	select {
	case <-done:
		stopJobs()
		p.opts.logger.Info("redis job processor stopped")
		return nil
	case <-ctx.Done():
		stopJobs()
		return fmt.Errorf("redisq: stop: %w", ctx.Err())
	}
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}
