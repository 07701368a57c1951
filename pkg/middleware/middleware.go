package middleware

import (
	"context"

	"github.com/dmitrymomot/jobcore/pkg/job"
)

// Middleware wraps one handler invocation.
type Middleware func(ctx context.Context, jc job.JobContext, next job.Handler) (job.Result, error)

// Compose chains mws so that mws[0] runs first and the handler runs last.
// Nil entries are skipped.
func Compose(mws ...Middleware) func(job.Handler) job.Handler {
	return func(h job.Handler) job.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			if mw == nil {
				continue
			}
			next := h
			h = func(ctx context.Context, jc job.JobContext) (job.Result, error) {
				return mw(ctx, jc, next)
			}
		}
		return h
	}
}

// Wrap is Compose(mws...)(h).
func Wrap(h job.Handler, mws ...Middleware) job.Handler {
	return Compose(mws...)(h)
}
