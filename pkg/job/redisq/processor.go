package redisq

import (
	"cmp"
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/jobcore/pkg/classify"
	"github.com/dmitrymomot/jobcore/pkg/job"
)

func (p *Provider) loop(loopCtx, jobsCtx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.opts.pollInterval)
	defer ticker.Stop()

	for {
		p.tick(loopCtx, jobsCtx)
		select {
		case <-loopCtx.Done():
			return
		case <-ticker.C:
		}
	}
}

type candidate struct {
	job job.Job
	seq int
}

// tick claims due jobs across all queues, highest priority first, until
// every slot is taken.
func (p *Provider) tick(ctx, jobsCtx context.Context) {
	due, err := p.due(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.opts.logger.Error("failed to list due jobs", slog.Any("error", err))
		}
		return
	}
	if len(due) == 0 {
		return
	}

	slices.SortFunc(due, func(a, b candidate) int {
		if c := cmp.Compare(b.job.Priority, a.job.Priority); c != 0 {
			return c
		}
		if c := a.job.ScheduledAt.Compare(b.job.ScheduledAt); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	for _, c := range due {
		if !p.slots.TryAcquire(1) {
			return
		}
		j, ok := p.claim(ctx, c.job)
		if !ok {
			p.slots.Release(1)
			continue
		}
		p.wg.Add(1)
		go p.execute(jobsCtx, j)
	}
}

// due loads one batch of due jobs. Priority bands are scanned from the
// highest down, and scanning stops after the first priority level that
// fills the batch, so older low-priority jobs never hide a higher one.
func (p *Provider) due(ctx context.Context) ([]candidate, error) {
	bands, err := p.client.ZRevRangeWithScores(ctx, p.keys.bands(), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	batch := int64(p.opts.concurrency * 2)
	maxScore := strconv.FormatInt(p.now().UnixMilli(), 10)

	var ids []string
	for i, b := range bands {
		key, ok := b.Member.(string)
		if !ok {
			continue
		}
		members, err := p.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
			Min:   "-inf",
			Max:   maxScore,
			Count: batch,
		}).Result()
		if err != nil {
			return nil, err
		}
		ids = append(ids, members...)

		levelDone := i+1 == len(bands) || bands[i+1].Score != b.Score
		if levelDone && int64(len(ids)) >= batch {
			break
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	jobKeys := make([]string, len(ids))
	for i, id := range ids {
		jobKeys[i] = p.keys.job(id)
	}
	vals, err := p.client.MGet(ctx, jobKeys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]candidate, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			p.opts.logger.Warn("queued job has no record", slog.String("job_id", ids[i]))
			continue
		}
		j, err := decodeJob([]byte(s))
		if err != nil {
			p.opts.logger.Error("failed to decode queued job",
				slog.String("job_id", ids[i]),
				slog.Any("error", err),
			)
			continue
		}
		out = append(out, candidate{job: j, seq: i})
	}
	return out, nil
}

// claim removes j from its queue and marks it running. It reports false
// when another worker or Cancel removed it first.
func (p *Provider) claim(ctx context.Context, j job.Job) (job.Job, bool) {
	removed, err := p.client.ZRem(ctx, p.keys.queue(j.Queue, j.Priority), j.ID).Result()
	if err != nil || removed == 0 {
		return job.Job{}, false
	}

	// The listed copy may predate a retry; the removal makes this one current.
	if fresh, err := p.Job(ctx, j.ID); err == nil {
		j = fresh
	}

	next, err := job.Transition(j, job.Started(), p.now())
	if err != nil {
		p.opts.logger.Error("failed to start job",
			slog.String("job_id", j.ID),
			slog.Any("error", err),
		)
		return job.Job{}, false
	}
	if err := p.save(ctx, next); err != nil {
		p.opts.logger.Error("failed to mark job running",
			slog.String("job_id", j.ID),
			slog.Any("error", err),
		)
		// Put it back so the job is not lost.
		p.client.ZAdd(context.WithoutCancel(ctx), p.keys.queue(j.Queue, j.Priority), redis.Z{Score: score(j.ScheduledAt), Member: j.ID})
		return job.Job{}, false
	}
	return next, true
}

// execute runs one attempt and records its outcome.
func (p *Provider) execute(ctx context.Context, j job.Job) {
	defer p.wg.Done()
	defer p.slots.Release(1)

	var (
		data json.RawMessage
		err  error
	)
	if h, ok := p.handlers.Get(j.Name); ok {
		data, err = job.Run(ctx, p.wrap(h), j.Context())
	} else {
		err = job.MissingHandler(j.Name)
	}

	p.finish(j, data, err)
}

func (p *Provider) finish(j job.Job, data json.RawMessage, runErr error) {
	var o job.Outcome
	if runErr == nil {
		o = job.Succeeded(data)
	} else {
		o = job.Failed(classify.Decide(runErr, j.Attempts, j.MaxAttempts, p.opts.backoff))
	}

	next, err := job.Transition(j, o, p.now())
	if err != nil {
		p.opts.logger.Error("failed to record job outcome",
			slog.String("job_id", j.ID),
			slog.Any("error", err),
		)
		return
	}

	// The outcome must be stored even when the processor is stopping.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.save(ctx, next); err != nil {
		p.opts.logger.Error("failed to save job outcome",
			slog.String("job_id", j.ID),
			slog.Any("error", err),
		)
		return
	}

	attrs := []any{
		slog.String("job_id", next.ID),
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
}
