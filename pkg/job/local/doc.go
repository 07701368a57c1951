// Package local implements job.Provider in memory with a polling processor.
//
// It is the reference backend for development and tests: jobs live in a map
// guarded by a mutex, a ticker selects due jobs by priority and schedule, and
// each selected job runs in its own goroutine through the configured
// middleware chain. Nothing survives a restart and only one process may use a
// provider.
//
// Basic usage:
//
//	p := local.New(
//	    local.WithConcurrency(4),
//	    local.WithCatalog(event.DefaultCatalog()),
//	    local.WithMiddleware(jobcore.DefaultPipeline(logger, nil)...),
//	    local.WithLogger(logger),
//	)
//	p.RegisterHandler(event.OrderCreated, handleOrder)
//
//	if err := p.Start(ctx); err != nil {
//	    return err
//	}
//	defer p.Stop(context.Background())
//
//	res, err := p.Send(ctx, event.OrderCreated, event.OrderPayload{
//	    Tenant:  event.Tenant{ID: "t_1"},
//	    OrderID: "o_1",
//	})
//
// Retries follow classify.Decide: permanent errors fail the job at once,
// retryable errors are retried until MaxAttempts with delays from the
// configured backoff strategy. Terminal jobs are evicted after the retention
// period.
package local
