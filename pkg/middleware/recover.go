package middleware

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/dmitrymomot/jobcore/pkg/job"
)

// Recover turns a handler panic into a *job.PanicError.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, jc job.JobContext, next job.Handler) (res job.Result, err error) {
		defer func() {
			if r := recover(); r != nil {
				pe := &job.PanicError{Value: r, Stack: debug.Stack()}
				if logger != nil {
					logger.ErrorContext(ctx, "job handler panicked",
						slog.String("job_id", jc.ID),
						slog.String("event", jc.Name),
						slog.Any("panic", r),
						slog.String("stack", string(pe.Stack)),
					)
				}
				res, err = job.Result{}, pe
			}
		}()
		return next(ctx, jc)
	}
}
