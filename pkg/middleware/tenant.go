package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/dmitrymomot/jobcore/pkg/event"
	"github.com/dmitrymomot/jobcore/pkg/job"
	"github.com/dmitrymomot/jobcore/pkg/tenant"
)

// TenantContext validates the payload tenant, stores it in the context and
// runs the handler inside scoper. A nil scoper runs the handler unscoped, and
// so does a scoper reporting tenant.ErrScopeUnavailable before the handler
// starts. A payload without a tenant fails permanently without calling next.
func TenantContext(scoper tenant.Scoper, logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return func(ctx context.Context, jc job.JobContext, next job.Handler) (job.Result, error) {
		id, err := event.ValidateTenantID(jc.Name, jc.Payload)
		if err != nil {
			return job.Result{}, err
		}
		jc.TenantID = id
		ctx = tenant.WithID(ctx, id)

		if scoper == nil {
			return next(ctx, jc)
		}

		var (
			res     job.Result
			herr    error
			started bool
		)
		err = scoper.Scope(ctx, id, func(ctx context.Context) error {
			started = true
			res, herr = next(ctx, jc)
			if herr != nil {
				return herr
			}
			return res.Err()
		})

		switch {
		case !started && errors.Is(err, tenant.ErrScopeUnavailable):
			logger.WarnContext(ctx, "tenant scope unavailable, running unscoped",
				slog.String("job_id", jc.ID),
				slog.String("tenant_id", id),
				slog.Any("error", err),
			)
			return next(ctx, jc)
		case herr != nil:
			return res, herr
		case started && !res.Success:
			return res, nil
		case err != nil:
			return job.Result{}, err
		}
		return res, nil
	}
}
