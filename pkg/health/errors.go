package health

import "errors"

var (
	// ErrCheckFailed is returned when one or more health checks fail.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout is reported for a probe that outlives the run timeout.
	ErrCheckTimeout = errors.New("health: check timeout")
)
