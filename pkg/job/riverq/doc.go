// Package riverq implements job.Provider on top of River, a Postgres-backed
// job queue.
//
// Every event is stored as one River job of kind "jobcore:event" carrying the
// event name, the tenant and the raw payload. A single River worker looks up
// the registered handler by event name and runs it through the middleware
// chain. Failures are classified once: permanent errors cancel the River job
// so it is never retried, retryable errors are retried with delays from the
// configured backoff strategy or the error's RetryAfter hint. Successful
// results are stored with river.RecordOutput and returned by TriggerAndWait.
//
// Basic usage:
//
//	if err := riverq.Migrate(ctx, pool, logger); err != nil {
//	    return err
//	}
//	p, err := riverq.New(pool,
//	    riverq.WithCatalog(event.DefaultCatalog()),
//	    riverq.WithSchedules(schedules),
//	    riverq.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	p.RegisterHandler(event.OrderCreated, handleOrder)
//	if err := p.Start(ctx); err != nil {
//	    return err
//	}
//	defer p.Stop(context.Background())
//
// Run IDs are River job IDs in decimal form. Idempotency keys are enforced
// with River unique jobs over the key. Schedules from a schedule.Catalog are
// registered as River periodic jobs.
package riverq
