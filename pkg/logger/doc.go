// Package logger builds the process *slog.Logger.
//
// Output is JSON for production or colored console text through
// [github.com/lmittmann/tint] for development. Context extractors add
// attributes such as tenant_id and job_id to every record logged with a
// context. When a Sentry DSN is configured, warnings are kept as Sentry logs
// and errors become Sentry issues.
//
//	log := logger.New(cfg,
//	    tenant.LogExtractor(),
//	    logger.JobIDExtractor(),
//	)
//	defer logger.Flush(2 * time.Second)
//
// Components that accept a logger default to NewNope.
package logger
