// Package jobcore wires a job backend from configuration.
//
// Application code talks to a job.Provider: it sends tenant-scoped events,
// waits for results, cancels and inspects jobs. Which system stores and runs
// those jobs is a deployment decision made through Config:
//
//	local   in-memory queue and processor (pkg/job/local)
//	river   River on Postgres (pkg/job/riverq)
//	redis   Redis sorted sets with a cron scheduler (pkg/job/redisq)
//
// A typical worker:
//
//	var cfg jobcore.Config
//	if err := env.Parse(&cfg); err != nil {
//	    return err
//	}
//	p, err := jobcore.NewProvider(ctx, cfg, jobcore.Deps{
//	    Logger:     log,
//	    Pool:       pool,
//	    Redis:      rdb,
//	    Catalog:    event.DefaultCatalog(),
//	    Middleware: jobcore.DefaultPipeline(log, nil),
//	})
//	if err != nil {
//	    return err
//	}
//	p.RegisterHandler(event.OrderCreated, handleOrder)
//	if err := p.Start(ctx); err != nil {
//	    return err
//	}
//
// Pipeline assembles the standard middleware chain when more than the
// defaults are needed, for example rate limits or payload deduplication.
package jobcore
