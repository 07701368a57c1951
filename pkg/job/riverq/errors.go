package riverq

import "errors"

var (
	// ErrPoolRequired is returned by New without a connection pool.
	ErrPoolRequired = errors.New("riverq: pgx pool is required")

	// ErrInvalidSchedule is returned when a schedule cannot be turned into a periodic job.
	ErrInvalidSchedule = errors.New("riverq: invalid schedule")
)
