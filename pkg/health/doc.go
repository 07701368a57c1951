// Package health runs named probes in parallel and serves liveness and
// readiness endpoints for the worker process.
//
// Probes are plain func(context.Context) error closures, so db.Healthcheck,
// redis.Healthcheck and job.Healthcheck plug in directly:
//
//	checks := health.Checks{
//	    "postgres": db.Healthcheck(pool),
//	    "jobs":     job.Healthcheck(provider),
//	}
//	r := chi.NewRouter()
//	r.Mount("/health", health.Router(checks, health.WithLogger(logger)))
//
// The whole run is bounded by a timeout (default 30s). A probe that does not
// return in time is reported as unhealthy with [ErrCheckTimeout]. Responses
// are plain text unless the client asks for JSON through the Accept header
// or ?format=json.
package health
