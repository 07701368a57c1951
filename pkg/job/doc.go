// Package job defines the contract between application code and the
// background-job backends.
//
// Application code depends on Provider only. Three implementations satisfy
// it: pkg/job/local (in-process, for development and tests), pkg/job/riverq
// (Postgres via River) and pkg/job/redisq (Redis). Switching between them is
// a configuration change.
//
// # Sending work
//
//	res, err := provider.Send(ctx, event.OrderCreated, event.OrderPayload{
//	    Tenant:  event.Tenant{ID: tenantID},
//	    OrderID: order.ID,
//	}, job.WithIdempotencyKey("order:"+order.ID), job.WithMaxAttempts(5))
//
// Every payload must carry a tenantId; providers reject payloads without one
// before anything is queued. Sending twice with the same idempotency key
// returns the first job's ID with Duplicate set.
//
// # Handling work
//
// Handlers receive a read-only JobContext and return a Result or an error.
// Typed payloads are decoded with HandlerFunc:
//
//	provider.RegisterHandler(event.OrderCreated, job.HandlerFunc(
//	    func(ctx context.Context, jc job.JobContext, p event.OrderPayload) (any, error) {
//	        return nil, attribute(ctx, p)
//	    },
//	))
//
// Or with structural typing:
//
//	job.RegisterTask[event.AttributionPayload](provider, &ComputeAttribution{repo: repo})
//
// Errors are classified by pkg/classify. Permanent errors fail the job at
// once; retryable errors are retried until MaxAttempts is reached.
//
// # Lifecycle
//
// A job moves through the states below. Transition applies one outcome to a
// job record and returns the new record without touching the input.
//
//	pending|scheduled|retrying -> running -> completed
//	                                      -> failed
//	                                      -> pending|retrying (retry)
//	pending|scheduled|retrying -> cancelled
package job
