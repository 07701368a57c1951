package local

import (
	"cmp"
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"time"

	"github.com/dmitrymomot/jobcore/pkg/classify"
	"github.com/dmitrymomot/jobcore/pkg/job"
)

func (p *Provider) loop(loopCtx, jobsCtx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.opts.pollInterval)
	defer ticker.Stop()

	p.tick(jobsCtx)
	for {
		select {
		case <-loopCtx.Done():
			return
		case <-ticker.C:
		case <-p.wake:
		}
		p.tick(jobsCtx)
	}
}

// tick claims due jobs up to the free concurrency and starts them.
func (p *Provider) tick(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	p.sweep(now)

	free := p.opts.concurrency - p.active
	if free <= 0 {
		return
	}

	var due []*entry
	for _, e := range p.jobs {
		if e.job.Status.IsWaiting() && !e.job.ScheduledAt.After(now) {
			due = append(due, e)
		}
	}
	if len(due) == 0 {
		return
	}

	slices.SortFunc(due, func(a, b *entry) int {
		if c := cmp.Compare(b.job.Priority, a.job.Priority); c != 0 {
			return c
		}
		if c := a.job.ScheduledAt.Compare(b.job.ScheduledAt); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	if len(due) > free {
		due = due[:free]
	}

	for _, e := range due {
		next, err := job.Transition(e.job, job.Started(), now)
		if err != nil {
			p.opts.logger.Error("failed to start job",
				slog.String("job_id", e.job.ID),
				slog.Any("error", err),
			)
			continue
		}
		e.job = next
		p.active++
		p.wg.Add(1)
		go p.execute(ctx, next.Clone())
	}
}

// execute runs one attempt outside the lock and records its outcome.
func (p *Provider) execute(ctx context.Context, j job.Job) {
	defer p.wg.Done()

	var (
		data json.RawMessage
		err  error
	)
	if h, ok := p.handlers.Get(j.Name); ok {
		data, err = job.Run(ctx, p.wrap(h), j.Context())
	} else {
		err = job.MissingHandler(j.Name)
	}

	p.finish(j.ID, data, err)
}

func (p *Provider) finish(id string, data json.RawMessage, runErr error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.notify()

	p.active--

	e, ok := p.jobs[id]
	if !ok {
		return
	}

	var o job.Outcome
	if runErr == nil {
		o = job.Succeeded(data)
	} else {
		o = job.Failed(classify.Decide(runErr, e.job.Attempts, e.job.MaxAttempts, p.opts.backoff))
	}

	next, err := job.Transition(e.job, o, p.now())
	if err != nil {
		p.opts.logger.Error("failed to record job outcome",
			slog.String("job_id", id),
			slog.Any("error", err),
		)
		return
	}
	e.job = next

	attrs := []any{
		slog.String("job_id", id),
		slog.String("event", next.Name),
		slog.String("tenant_id", next.TenantID),
		slog.Int("attempt", next.Attempts),
		slog.Int("max_attempts", next.MaxAttempts),
	}
	if next.Error != nil && next.Status != job.StatusCompleted {
		attrs = append(attrs,
			slog.String("code", next.Error.Code),
			slog.Bool("retryable", next.Error.Retryable),
		)
	}

	switch next.Status {
	case job.StatusCompleted:
		p.opts.logger.Debug("job completed", attrs...)
	case job.StatusFailed:
		p.opts.logger.Warn("job failed permanently", attrs...)
	default:
		attrs = append(attrs, slog.Time("next_run_at", next.ScheduledAt))
		p.opts.logger.Debug("job retry scheduled", attrs...)
	}

	if next.Status.IsTerminal() {
		p.live--
		p.resolve(next)
	}
}

// sweep evicts finished jobs older than the retention period. It runs at
// most once per retention period or second, whichever is shorter.
// Caller must hold p.mu.
func (p *Provider) sweep(now time.Time) {
	ttl := p.opts.retention
	if ttl <= 0 {
		return
	}
	if now.Sub(p.lastSweep) < min(ttl, time.Second) {
		return
	}
	p.lastSweep = now

	for id, e := range p.jobs {
		if e.job.Status.IsTerminal() && now.Sub(e.job.UpdatedAt) >= ttl {
			delete(p.jobs, id)
		}
	}
}
