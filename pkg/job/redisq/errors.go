package redisq

import "errors"

var (
	// ErrClientRequired is returned by New without a Redis client.
	ErrClientRequired = errors.New("redisq: redis client is required")

	// ErrInvalidSchedule is returned when a schedule cannot be registered.
	ErrInvalidSchedule = errors.New("redisq: invalid schedule")

	// ErrCorruptJob is returned when a stored job cannot be decoded.
	ErrCorruptJob = errors.New("redisq: corrupt job record")
)
