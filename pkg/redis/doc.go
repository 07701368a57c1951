// Package redis opens the go-redis client used by the Redis job backend and
// the Redis-backed dedup and cursor stores.
//
// Open validates the URL scheme (redis:// or rediss://), applies pool
// settings from Config and pings the server, retrying with a linearly
// growing delay. Healthcheck returns a ping probe for pkg/health.
//
//	client, err := redis.Open(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
// Settings are read from the environment:
//
//	REDIS_URL            - connection URL
//	REDIS_POOL_SIZE      - maximum connections (default: 10)
//	REDIS_MIN_IDLE_CONNS - idle connections kept open (default: 2)
//	REDIS_RETRY_ATTEMPTS - connection attempts at startup (default: 3)
//	REDIS_RETRY_INTERVAL - base delay between attempts (default: 2s)
//
// Errors wrap [ErrEmptyConnectionURL], [ErrFailedToParseURL],
// [ErrConnectionFailed] and [ErrHealthcheckFailed] with [errors.Join].
package redis
