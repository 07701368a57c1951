package riverq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/dmitrymomot/jobcore/pkg/classify"
	"github.com/dmitrymomot/jobcore/pkg/job"
	"github.com/dmitrymomot/jobcore/pkg/middleware"
)

// ProviderName identifies the River backend.
const ProviderName = "river"

var (
	_ job.Provider = (*Provider)(nil)
	_ job.Runner   = (*Provider)(nil)
)

// Provider is a job.Provider backed by River and Postgres.
// Jobs can be sent before Start; any process sharing the database can work
// them.
type Provider struct {
	opts     options
	pool     *pgxpool.Pool
	client   *river.Client[pgx.Tx]
	handlers *job.Registry

	mu      sync.Mutex
	started bool
}

// New creates the River client. The River schema must exist; see Migrate.
func New(pool *pgxpool.Pool, opts ...Option) (*Provider, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	handlers := job.NewRegistry()
	worker := &eventWorker{
		handlers: handlers,
		wrap:     middleware.Compose(o.middleware...),
		backoff:  o.backoff,
		logger:   o.logger,
	}
	workers := river.NewWorkers()
	river.AddWorker(workers, worker)

	periodic, err := periodicJobs(o)
	if err != nil {
		return nil, err
	}

	jobTimeout := o.jobTimeout
	if jobTimeout <= 0 {
		jobTimeout = -1
	}

	cfg := &river.Config{
		Queues:       queues(o),
		Workers:      workers,
		PeriodicJobs: periodic,
		Logger:       o.logger,
		MaxAttempts:  o.maxAttempts,
		JobTimeout:   jobTimeout,
		RetryPolicy:  &retryPolicy{strategy: o.backoff},
	}
	if o.retention > 0 {
		cfg.CompletedJobRetentionPeriod = o.retention
		cfg.CancelledJobRetentionPeriod = o.retention
		cfg.DiscardedJobRetentionPeriod = o.retention
	}

	client, err := river.NewClient(riverpgxv5.New(pool), cfg)
	if err != nil {
		return nil, fmt.Errorf("riverq: create client: %w", err)
	}

	return &Provider{
		opts:     o,
		pool:     pool,
		client:   client,
		handlers: handlers,
	}, nil
}

func queues(o options) map[string]river.QueueConfig {
	qs := map[string]river.QueueConfig{
		river.QueueDefault: {MaxWorkers: o.concurrency},
	}
	if o.catalog != nil {
		for _, name := range o.catalog.Names() {
			def, _ := o.catalog.Lookup(name)
			if def.Queue != "" {
				qs[def.Queue] = river.QueueConfig{MaxWorkers: o.concurrency}
			}
		}
	}
	for name, workers := range o.queues {
		if workers <= 0 {
			workers = o.concurrency
		}
		qs[name] = river.QueueConfig{MaxWorkers: workers}
	}
	return qs
}

func periodicJobs(o options) ([]*river.PeriodicJob, error) {
	if o.schedules == nil {
		return nil, nil
	}

	out := make([]*river.PeriodicJob, 0, len(o.schedules.Schedules))
	for _, s := range o.schedules.Schedules {
		sched, err := s.Parse()
		if err != nil {
			return nil, errors.Join(ErrInvalidSchedule, err)
		}
		tenantID, raw, err := job.EncodeTenantPayload(s.Event, s.Payload)
		if err != nil {
			return nil, errors.Join(ErrInvalidSchedule, err)
		}

		so := job.NewSendOptions()
		def, _ := o.catalog.Lookup(s.Event)
		so.ApplyDefaults(def, o.maxAttempts)

		args := eventArgs{Event: s.Event, TenantID: tenantID, Payload: raw}
		insert := &river.InsertOpts{
			Queue:       so.Queue,
			MaxAttempts: so.MaxAttempts,
			Priority:    riverPriority(so.Priority),
			Tags:        []string{"schedule"},
		}
		out = append(out, river.NewPeriodicJob(
			sched,
			func() (river.JobArgs, *river.InsertOpts) { return args, insert },
			&river.PeriodicJobOpts{RunOnStart: false},
		))
	}
	return out, nil
}

// Name returns "river".
func (p *Provider) Name() string { return ProviderName }

// IsConfigured reports whether the provider has a pool and a client.
func (p *Provider) IsConfigured() bool {
	return p != nil && p.pool != nil && p.client != nil
}

// RegisterHandler binds h to an event name. Register before Start.
func (p *Provider) RegisterHandler(name string, h job.Handler) {
	p.handlers.Register(name, h)
}

// Send validates the event and inserts a River job.
func (p *Provider) Send(ctx context.Context, name string, payload any, opts ...job.SendOption) (job.SendResult, error) {
	args, insert, err := p.build(name, payload, opts)
	if err != nil {
		return job.SendResult{}, err
	}

	res, err := p.client.Insert(ctx, args, insert)
	if err != nil {
		return job.SendResult{}, fmt.Errorf("riverq: insert: %w", err)
	}

	return job.SendResult{
		ID:        strconv.FormatInt(res.Job.ID, 10),
		Accepted:  true,
		Duplicate: res.UniqueSkippedAsDuplicate,
	}, nil
}

func (p *Provider) build(name string, payload any, opts []job.SendOption) (eventArgs, *river.InsertOpts, error) {
	if err := p.opts.catalog.Check(name); err != nil {
		return eventArgs{}, nil, err
	}
	tenantID, raw, err := job.EncodeTenantPayload(name, payload)
	if err != nil {
		return eventArgs{}, nil, err
	}

	o := job.NewSendOptions(opts...)
	def, _ := p.opts.catalog.Lookup(name)
	o.ApplyDefaults(def, p.opts.maxAttempts)

	args := eventArgs{
		Event:          name,
		TenantID:       tenantID,
		IdempotencyKey: o.IdempotencyKey,
		Payload:        raw,
	}
	insert := &river.InsertOpts{
		Queue:       o.Queue,
		MaxAttempts: o.MaxAttempts,
		Priority:    riverPriority(o.Priority),
		Tags:        o.Tags,
	}
	if now := time.Now(); o.RunAt(now).After(now) {
		insert.ScheduledAt = o.RunAt(now)
	}
	// Without a key every job would share the same unique args.
	if o.IdempotencyKey != "" {
		insert.UniqueOpts = river.UniqueOpts{ByArgs: true}
	}
	return args, insert, nil
}

// SendBatch inserts every event independently.
func (p *Provider) SendBatch(ctx context.Context, events []job.BatchEvent) job.BatchSendResult {
	return job.SendEach(ctx, events, p.Send)
}

// TriggerAndWait inserts a job and polls its row until it finishes or
// timeout elapses. The job keeps running after a timeout.
func (p *Provider) TriggerAndWait(ctx context.Context, name string, payload any, timeout time.Duration, opts ...job.SendOption) (job.WaitResult, error) {
	timeout = job.WaitTimeout(timeout)

	res, err := p.Send(ctx, name, payload, opts...)
	if err != nil {
		return job.WaitResult{}, err
	}
	id, _ := strconv.ParseInt(res.ID, 10, 64)

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(p.opts.waitPollInterval)
	defer ticker.Stop()

	for {
		row, err := p.client.JobGet(ctx, id)
		switch {
		case err == nil:
			if j := toJob(row); j.Status.IsTerminal() {
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

// cancelSQL cancels a row only while it waits, so a running attempt is never
// interrupted.
const cancelSQL = `UPDATE river_job
SET state = 'cancelled',
    finalized_at = now(),
    metadata = metadata || jsonb_build_object('` + cancelledKey + `', now())
WHERE id = $1 AND state IN ('available', 'pending', 'retryable', 'scheduled')`

// Cancel cancels a job that has not started its current attempt.
func (p *Provider) Cancel(ctx context.Context, runID string) (bool, error) {
	id, err := strconv.ParseInt(runID, 10, 64)
	if err != nil {
		return false, fmt.Errorf("%w: %s", job.ErrJobNotFound, runID)
	}

	tag, err := p.pool.Exec(ctx, cancelSQL, id)
	if err != nil {
		return false, fmt.Errorf("riverq: cancel: %w", err)
	}
	if tag.RowsAffected() == 1 {
		p.opts.logger.InfoContext(ctx, "job cancelled", slog.String("job_id", runID))
		return true, nil
	}

	if _, err := p.client.JobGet(ctx, id); err != nil {
		if errors.Is(err, river.ErrNotFound) {
			return false, fmt.Errorf("%w: %s", job.ErrJobNotFound, runID)
		}
		return false, fmt.Errorf("riverq: cancel: %w", err)
	}
	return false, nil
}

// GetRunStatus reads the job row.
func (p *Provider) GetRunStatus(ctx context.Context, runID string) (job.RunStatus, error) {
	j, err := p.Job(ctx, runID)
	if err != nil {
		return job.RunStatus{}, err
	}
	return j.RunStatus(), nil
}

// Job returns the job record for runID.
func (p *Provider) Job(ctx context.Context, runID string) (job.Job, error) {
	id, err := strconv.ParseInt(runID, 10, 64)
	if err != nil {
		return job.Job{}, fmt.Errorf("%w: %s", job.ErrJobNotFound, runID)
	}
	row, err := p.client.JobGet(ctx, id)
	if errors.Is(err, river.ErrNotFound) {
		return job.Job{}, fmt.Errorf("%w: %s", job.ErrJobNotFound, runID)
	}
	if err != nil {
		return job.Job{}, fmt.Errorf("riverq: get job: %w", err)
	}
	return toJob(row), nil
}

// HealthCheck pings the database and reports whether workers are running.
func (p *Provider) HealthCheck(ctx context.Context) job.HealthStatus {
	start := time.Now()
	if !p.IsConfigured() {
		return job.HealthStatus{Error: job.ErrNotConfigured.Error(), Latency: time.Since(start)}
	}

	p.mu.Lock()
	started := p.started
	p.mu.Unlock()

	if err := p.pool.Ping(ctx); err != nil {
		return job.HealthStatus{Error: err.Error(), Latency: time.Since(start)}
	}
	if !started {
		return job.HealthStatus{Error: "workers not started", Latency: time.Since(start)}
	}
	return job.HealthStatus{Healthy: true, Latency: time.Since(start)}
}

// Start begins working jobs.
func (p *Provider) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return job.ErrAlreadyStarted
	}
	if err := p.client.Start(ctx); err != nil {
		return fmt.Errorf("riverq: start client: %w", err)
	}

	p.started = true
	p.opts.logger.Info("river job provider started",
		slog.Int("handlers", len(p.handlers.Names())),
	)
	return nil
}

// Stop waits for running jobs to finish or ctx to end.
func (p *Provider) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return job.ErrNotStarted
	}
	if err := p.client.Stop(ctx); err != nil {
		return fmt.Errorf("riverq: stop client: %w", err)
	}

	p.started = false
	p.opts.logger.Info("river job provider stopped")
	return nil
}
