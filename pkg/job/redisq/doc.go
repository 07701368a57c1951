// Package redisq implements job.Provider on Redis.
//
// Each job is stored as JSON under "{prefix}:job:{id}". Waiting jobs are
// members of a sorted set per queue and priority,
// "{prefix}:queue:{name}:{priority}", scored by their due time in Unix
// milliseconds. "{prefix}:bands" indexes those sets by priority, and workers
// scan them from the highest priority down. Workers claim a due job by
// removing it from its set: ZREM succeeds for exactly one caller, so any
// number of processes can share the same keys. Idempotency keys are reserved with SETNX under
// "{prefix}:idem:{key}" and point at the job that claimed them.
//
// Failed attempts are classified with classify.Decide and either requeued
// with a backoff delay or finished as failed. Finished jobs expire after the
// retention period. Schedules from a schedule.Catalog run on a cron.Cron in
// every process; each fire is sent with an idempotency key derived from the
// schedule name and fire time, so only one job per fire is queued.
//
// Basic usage:
//
//	client, err := redis.Open(ctx, cfg.Redis)
//	if err != nil {
//	    return err
//	}
//	p, err := redisq.New(client,
//	    redisq.WithPrefix("jobs"),
//	    redisq.WithCatalog(event.DefaultCatalog()),
//	    redisq.WithLogger(logger),
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
// A worker that dies mid-attempt leaves its job in the running state; such
// jobs are not recovered automatically.
package redisq
