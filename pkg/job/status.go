package job

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusRetrying  Status = "retrying"
)

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsWaiting reports whether the job has not started its current attempt.
// Only waiting jobs can be claimed or cancelled.
func (s Status) IsWaiting() bool {
	switch s {
	case StatusPending, StatusScheduled, StatusRetrying:
		return true
	default:
		return false
	}
}

func (s Status) String() string { return string(s) }
