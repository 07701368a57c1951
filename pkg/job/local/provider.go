package local

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/jobcore/pkg/classify"
	"github.com/dmitrymomot/jobcore/pkg/job"
	"github.com/dmitrymomot/jobcore/pkg/middleware"
)

// ProviderName identifies the in-memory backend.
const ProviderName = "local"

var (
	_ job.Provider = (*Provider)(nil)
	_ job.Runner   = (*Provider)(nil)
)

// Provider is an in-memory job.Provider with its own processor.
// Jobs can be sent before Start; they run once the processor is started.
type Provider struct {
	opts     options
	handlers *job.Registry
	wrap     func(job.Handler) job.Handler
	now      func() time.Time

	mu        sync.Mutex
	jobs      map[string]*entry
	waiters   map[string][]chan job.WaitResult
	seq       uint64
	live      int
	active    int
	lastSweep time.Time

	wake     chan struct{}
	wg       sync.WaitGroup
	started  bool
	stopLoop context.CancelFunc
	stopJobs context.CancelFunc
	loopDone chan struct{}
}

type entry struct {
	job job.Job
	seq uint64
}

// New creates a provider. Call Start to begin processing.
func New(opts ...Option) *Provider {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Provider{
		opts:     o,
		handlers: job.NewRegistry(),
		wrap:     middleware.Compose(o.middleware...),
		now:      time.Now,
		jobs:     make(map[string]*entry),
		waiters:  make(map[string][]chan job.WaitResult),
		wake:     make(chan struct{}, 1),
	}
}

// Name returns "local".
func (p *Provider) Name() string { return ProviderName }

// IsConfigured is always true: the provider needs no external resources.
func (p *Provider) IsConfigured() bool { return true }

// RegisterHandler binds h to an event name, replacing any previous handler.
func (p *Provider) RegisterHandler(name string, h job.Handler) {
	p.handlers.Register(name, h)
}

// Send validates the event and its tenant, then stores a new job.
// A send carrying an idempotency key that is already known returns the
// existing job with Duplicate set.
func (p *Provider) Send(ctx context.Context, name string, payload any, opts ...job.SendOption) (job.SendResult, error) {
	res, _, err := p.enqueue(ctx, name, payload, opts, false)
	return res, err
}

// SendBatch sends every event independently.
func (p *Provider) SendBatch(ctx context.Context, events []job.BatchEvent) job.BatchSendResult {
	return job.SendEach(ctx, events, p.Send)
}

// TriggerAndWait sends a job and blocks until it finishes or timeout elapses.
// The job keeps running after a timeout.
func (p *Provider) TriggerAndWait(ctx context.Context, name string, payload any, timeout time.Duration, opts ...job.SendOption) (job.WaitResult, error) {
	timeout = job.WaitTimeout(timeout)

	res, wait, err := p.enqueue(ctx, name, payload, opts, true)
	if err != nil {
		return job.WaitResult{}, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-wait:
		return out, nil
	case <-timer.C:
		p.dropWaiter(res.ID, wait)
		return job.TimedOut(res.ID, timeout), nil
	case <-ctx.Done():
		p.dropWaiter(res.ID, wait)
		return job.WaitResult{ID: res.ID, Error: classify.Classify(ctx.Err())}, nil
	}
}

// Cancel cancels a job that has not started its current attempt.
// It returns false for running or finished jobs.
func (p *Provider) Cancel(_ context.Context, runID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.jobs[runID]
	if !ok {
		return false, fmt.Errorf("%w: %s", job.ErrJobNotFound, runID)
	}
	if !e.job.Status.IsWaiting() {
		return false, nil
	}

	next, err := job.Transition(e.job, job.Cancelled(), p.now())
	if err != nil {
		return false, err
	}
	e.job = next
	p.live--
	p.resolve(next)

	p.opts.logger.Info("job cancelled",
		slog.String("job_id", runID),
		slog.String("event", next.Name),
	)
	return true, nil
}

// GetRunStatus returns the current status of a job.
func (p *Provider) GetRunStatus(_ context.Context, runID string) (job.RunStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.jobs[runID]
	if !ok {
		return job.RunStatus{}, fmt.Errorf("%w: %s", job.ErrJobNotFound, runID)
	}
	return e.job.RunStatus(), nil
}

// Job returns a snapshot of the job record.
func (p *Provider) Job(id string) (job.Job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.jobs[id]
	if !ok {
		return job.Job{}, false
	}
	return e.job.Clone(), true
}

// Stats is a point-in-time view of the provider.
type Stats struct {
	ByStatus map[job.Status]int `json:"by_status"`
	Total    int                `json:"total"`
	Active   int                `json:"active"`
}

// Stats counts jobs per status.
func (p *Provider) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		ByStatus: make(map[job.Status]int),
		Total:    len(p.jobs),
		Active:   p.active,
	}
	for _, e := range p.jobs {
		s.ByStatus[e.job.Status]++
	}
	return s
}

// HealthCheck reports healthy while the processor is running.
func (p *Provider) HealthCheck(ctx context.Context) job.HealthStatus {
	start := time.Now()
	if err := ctx.Err(); err != nil {
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

func (p *Provider) enqueue(_ context.Context, name string, payload any, opts []job.SendOption, wait bool) (job.SendResult, chan job.WaitResult, error) {
	if err := p.opts.catalog.Check(name); err != nil {
		return job.SendResult{}, nil, err
	}
	tenantID, raw, err := job.EncodeTenantPayload(name, payload)
	if err != nil {
		return job.SendResult{}, nil, err
	}

	o := job.NewSendOptions(opts...)
	def, _ := p.opts.catalog.Lookup(name)
	o.ApplyDefaults(def, p.opts.maxAttempts)

	p.mu.Lock()
	defer p.mu.Unlock()

	id := o.IdempotencyKey
	if id != "" {
		if e, ok := p.jobs[id]; ok {
			res := job.SendResult{ID: id, Accepted: true, Duplicate: true}
			return res, p.addWaiter(e.job, wait), nil
		}
	} else {
		id = uuid.Must(uuid.NewV7()).String()
	}

	if p.live >= p.opts.maxQueueSize {
		return job.SendResult{}, nil, job.ErrQueueFull
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

	p.seq++
	p.jobs[id] = &entry{job: j, seq: p.seq}
	p.live++
	p.notify()

	p.opts.logger.Debug("job queued",
		slog.String("job_id", id),
		slog.String("event", name),
		slog.String("tenant_id", tenantID),
		slog.String("queue", o.Queue),
		slog.String("status", status.String()),
	)

	return job.SendResult{ID: id, Accepted: true}, p.addWaiter(j, wait), nil
}

// addWaiter registers a waiter for j. A finished job resolves it at once.
// Caller must hold p.mu.
func (p *Provider) addWaiter(j job.Job, wait bool) chan job.WaitResult {
	if !wait {
		return nil
	}
	ch := make(chan job.WaitResult, 1)
	if j.Status.IsTerminal() {
		ch <- j.WaitResult()
		return ch
	}
	p.waiters[j.ID] = append(p.waiters[j.ID], ch)
	return ch
}

func (p *Provider) dropWaiter(id string, ch chan job.WaitResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ws := p.waiters[id]
	for i, w := range ws {
		if w == ch {
			ws = append(ws[:i], ws[i+1:]...)
			break
		}
	}
	if len(ws) == 0 {
		delete(p.waiters, id)
		return
	}
	p.waiters[id] = ws
}

// resolve delivers the outcome of a finished job to its waiters.
// Caller must hold p.mu.
func (p *Provider) resolve(j job.Job) {
	ws := p.waiters[j.ID]
	if len(ws) == 0 {
		return
	}
	delete(p.waiters, j.ID)
	for _, ch := range ws {
		ch <- j.WaitResult()
	}
}

func (p *Provider) notify() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Start launches the processor loop. Jobs keep running until Stop; the
// context only bounds the call itself.
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

	p.opts.logger.Info("local job processor started",
		slog.Int("concurrency", p.opts.concurrency),
		slog.Duration("poll_interval", p.opts.pollInterval),
		slog.Int("handlers", len(p.handlers.Names())),
	)
	return nil
}

// Stop halts polling and waits for running jobs. If ctx ends first the
// running handlers are cancelled and ctx's error is returned.
func (p *Provider) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return job.ErrNotStarted
	}
	p.started = false
	stopLoop, stopJobs, loopDone := p.stopLoop, p.stopJobs, p.loopDone
	p.mu.Unlock()

	stopLoop()
	<-loopDone

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		stopJobs()
		p.opts.logger.Info("local job processor stopped")
		return nil
	case <-ctx.Done():
		stopJobs()
		return fmt.Errorf("local: stop: %w", ctx.Err())
	}
}
