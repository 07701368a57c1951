// Package middleware wraps job handlers with cross-cutting behavior.
//
// A Middleware receives the job context and the next handler in the chain and
// decides whether and how to call it. Compose builds a chain where the first
// middleware is the outermost layer:
//
//	wrap := middleware.Compose(
//	    middleware.Timeout(5*time.Minute),
//	    middleware.Recover(log),
//	    middleware.Logging(log),
//	    middleware.ErrorClassification(),
//	    middleware.TenantContext(scoper, log),
//	)
//	provider.RegisterHandler(event.OrderCreated, wrap(handler))
//
// Timeout sits outermost so it bounds everything inside it, including time
// spent waiting on a rate limiter or a tenant-scoped connection.
package middleware
