package riverq

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/riverqueue/river"

	"github.com/dmitrymomot/jobcore/pkg/backoff"
	"github.com/dmitrymomot/jobcore/pkg/classify"
	"github.com/dmitrymomot/jobcore/pkg/job"
)

// eventArgs is the River payload of every jobcore job.
type eventArgs struct {
	Event          string          `json:"event"`
	TenantID       string          `json:"tenant_id"`
	IdempotencyKey string          `json:"idempotency_key,omitempty" river:"unique"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

func (eventArgs) Kind() string { return "jobcore:event" }

// eventWorker dispatches River jobs to handlers by event name.
type eventWorker struct {
	river.WorkerDefaults[eventArgs]
	handlers *job.Registry
	wrap     func(job.Handler) job.Handler
	backoff  backoff.Strategy
	logger   *slog.Logger

	// delays holds retry delays decided by Work until River asks NextRetry.
	delays sync.Map
}

func (w *eventWorker) Work(ctx context.Context, rj *river.Job[eventArgs]) error {
	jc := job.JobContext{
		ID:          strconv.FormatInt(rj.ID, 10),
		Name:        rj.Args.Event,
		TenantID:    rj.Args.TenantID,
		Queue:       rj.Queue,
		Payload:     rj.Args.Payload,
		Attempt:     rj.Attempt,
		MaxAttempts: rj.MaxAttempts,
		QueuedAt:    rj.CreatedAt,
	}
	if rj.AttemptedAt != nil {
		jc.StartedAt = *rj.AttemptedAt
	}

	var (
		data json.RawMessage
		err  error
	)
	if h, ok := w.handlers.Get(jc.Name); ok {
		data, err = job.Run(ctx, w.wrap(h), jc)
	} else {
		err = job.MissingHandler(jc.Name)
	}

	if err == nil {
		if len(data) > 0 {
			if err := river.RecordOutput(ctx, data); err != nil {
				w.logger.WarnContext(ctx, "failed to record job output",
					slog.Int64("river_job_id", rj.ID),
					slog.String("event", jc.Name),
					slog.Any("error", err),
				)
			}
		}
		return nil
	}

	d := classify.Decide(err, rj.Attempt, rj.MaxAttempts, w.backoff)
	failure := &attemptError{ce: d.Err}

	switch d.Action {
	case classify.ActionAbort:
		if !d.Err.Retryable {
			w.logger.WarnContext(ctx, "job failed permanently",
				slog.Int64("river_job_id", rj.ID),
				slog.String("event", jc.Name),
				slog.String("code", d.Err.Code),
			)
			return river.JobCancel(failure)
		}
	case classify.ActionDelay:
		w.delays.Store(rj.ID, d.Delay)
	case classify.ActionRetry:
		w.delays.Store(rj.ID, time.Duration(0))
	}
	return failure
}

// NextRetry applies the delay decided for the failed attempt. A zero time
// defers to the client retry policy.
func (w *eventWorker) NextRetry(rj *river.Job[eventArgs]) time.Time {
	v, ok := w.delays.LoadAndDelete(rj.ID)
	if !ok {
		return time.Time{}
	}
	return time.Now().Add(v.(time.Duration))
}
