package jobcore

import "errors"

var (
	// ErrUnknownBackend is returned for a backend name other than local, river or redis.
	ErrUnknownBackend = errors.New("jobcore: unknown backend")

	// ErrPoolRequired is returned when the river backend has no Postgres pool.
	ErrPoolRequired = errors.New("jobcore: river backend requires a postgres pool")

	// ErrRedisRequired is returned when the redis backend has no Redis client.
	ErrRedisRequired = errors.New("jobcore: redis backend requires a redis client")
)
