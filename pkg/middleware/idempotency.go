package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/jobcore/pkg/dedup"
	"github.com/dmitrymomot/jobcore/pkg/job"
)

// KeyFunc derives the idempotency key of a job. An empty key disables the check.
type KeyFunc func(jc job.JobContext) string

// ByJobID keys on event name and job ID, so a retried attempt of a job that
// already succeeded is skipped.
func ByJobID(jc job.JobContext) string {
	return jc.Name + ":" + jc.ID
}

// ByPayloadField keys on a string field of the payload, for example an
// idempotency key derived with classify.IdempotencyKey.
func ByPayloadField(field string) KeyFunc {
	return func(jc job.JobContext) string {
		var m map[string]any
		if err := json.Unmarshal(jc.Payload, &m); err != nil {
			return ""
		}
		s, _ := m[field].(string)
		if s == "" {
			return ""
		}
		return jc.Name + ":" + s
	}
}

// Skipped is the result data returned for a job that was already processed.
type Skipped struct {
	Key     string `json:"key"`
	Skipped bool   `json:"skipped"`
}

// Idempotency skips jobs whose key is already marked in store and marks the
// key after a successful attempt. Failed attempts leave the key unmarked so a
// retry runs again. A store read failure fails the attempt rather than risk a
// second execution.
func Idempotency(store dedup.Store, keyFn KeyFunc, ttl time.Duration, logger *slog.Logger) Middleware {
	if keyFn == nil {
		keyFn = ByJobID
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return func(ctx context.Context, jc job.JobContext, next job.Handler) (job.Result, error) {
		key := keyFn(jc)
		if store == nil || key == "" {
			return next(ctx, jc)
		}

		seen, err := store.Has(ctx, key)
		if err != nil {
			return job.Result{}, fmt.Errorf("middleware: idempotency lookup: %w", err)
		}
		if seen {
			logger.InfoContext(ctx, "job skipped, already processed",
				slog.String("job_id", jc.ID),
				slog.String("event", jc.Name),
				slog.String("key", key),
			)
			return job.OK(Skipped{Key: key, Skipped: true}), nil
		}

		res, err := next(ctx, jc)
		if err != nil || !res.Success {
			return res, err
		}

		if err := store.Set(ctx, key, ttl); err != nil {
			logger.WarnContext(ctx, "failed to mark job processed",
				slog.String("job_id", jc.ID),
				slog.String("key", key),
				slog.Any("error", err),
			)
		}
		return res, nil
	}
}
