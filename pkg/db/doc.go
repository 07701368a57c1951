// Package db opens and maintains the PostgreSQL pool shared by the River
// backend, the tenant scoper and the cursor store.
//
// It wraps [github.com/jackc/pgx/v5/pgxpool] with startup retries driven by a
// backoff strategy, a ping-based health check, a transaction helper and
// migrations applied with [github.com/pressly/goose/v3].
//
// # Configuration
//
// Settings are read from the environment:
//
//	DATABASE_URL                - PostgreSQL connection URL
//	DATABASE_MAX_CONNS          - Maximum pool size (default: 10)
//	DATABASE_MIN_CONNS          - Minimum idle connections (default: 2)
//	DATABASE_HEALTHCHECK_PERIOD - Pool health check interval (default: 1m)
//	DATABASE_MAX_CONN_IDLE_TIME - Maximum connection idle time (default: 10m)
//	DATABASE_MAX_CONN_LIFETIME  - Maximum connection lifetime (default: 30m)
//	DATABASE_RETRY_ATTEMPTS     - Connection attempts at startup (default: 3)
//	DATABASE_RETRY_INTERVAL     - Base delay between attempts (default: 2s)
//	DATABASE_MIGRATIONS_TABLE   - goose version table (default: jobcore_migrations)
//
// # Usage
//
//	pool, err := db.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	err = db.WithTx(ctx, pool, func(tx pgx.Tx) error {
//		_, err := tx.Exec(ctx, "UPDATE payouts SET status = 'sent' WHERE id = $1", id)
//		return err
//	})
//
// Errors wrap the sentinels below with [errors.Join] so the driver error is
// kept:
//
//   - [ErrNotConfigured] - no connection URL
//   - [ErrFailedToParseDBConfig] - invalid connection URL
//   - [ErrFailedToOpenDBConnection] - all connection attempts failed
//   - [ErrHealthcheckFailed] - ping failed
//   - [ErrApplyMigrations] - goose failed
package db
