package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/jobcore/pkg/classify"
	"github.com/dmitrymomot/jobcore/pkg/job"
	"github.com/dmitrymomot/jobcore/pkg/logger"
)

// Logging logs the start and the outcome of every attempt and stores the job
// ID in ctx for logger.JobIDExtractor. Errors pass through unchanged.
func Logging(log *slog.Logger) Middleware {
	return func(ctx context.Context, jc job.JobContext, next job.Handler) (job.Result, error) {
		ctx = logger.WithJobID(ctx, jc.ID)
		if log == nil {
			return next(ctx, jc)
		}

		// job_id comes from ctx through logger.JobIDExtractor.
		attrs := []any{
			slog.String("event", jc.Name),
			slog.String("tenant_id", jc.TenantID),
			slog.String("queue", jc.Queue),
			slog.Int("attempt", jc.Attempt),
			slog.Int("max_attempts", jc.MaxAttempts),
		}
		log.DebugContext(ctx, "job started", attrs...)

		start := time.Now()
		res, err := next(ctx, jc)
		attrs = append(attrs, slog.Duration("duration", time.Since(start)))

		failure := err
		if failure == nil {
			failure = res.Err()
		}
		if failure != nil {
			ce := classify.Classify(failure)
			attrs = append(attrs,
				slog.String("error", ce.Message),
				slog.String("code", ce.Code),
				slog.Bool("retryable", ce.Retryable),
			)
			if ce.Retryable && !jc.IsLastAttempt() {
				log.WarnContext(ctx, "job attempt failed", attrs...)
			} else {
				log.ErrorContext(ctx, "job failed", attrs...)
			}
			return res, err
		}

		log.InfoContext(ctx, "job completed", attrs...)
		return res, nil
	}
}

// TimingFunc receives the duration and error of every attempt.
type TimingFunc func(jc job.JobContext, d time.Duration, err error)

// Timing reports attempt durations to observe.
func Timing(observe TimingFunc) Middleware {
	return func(ctx context.Context, jc job.JobContext, next job.Handler) (job.Result, error) {
		if observe == nil {
			return next(ctx, jc)
		}
		start := time.Now()
		res, err := next(ctx, jc)
		failure := err
		if failure == nil {
			failure = res.Err()
		}
		observe(jc, time.Since(start), failure)
		return res, err
	}
}

// ErrorClassification converts handler errors into *classify.ClassifiedError.
func ErrorClassification() Middleware {
	return func(ctx context.Context, jc job.JobContext, next job.Handler) (job.Result, error) {
		res, err := next(ctx, jc)
		if err != nil {
			return res, classify.Classify(err)
		}
		return res, nil
	}
}
