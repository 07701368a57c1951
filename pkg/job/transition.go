package job

import (
	"fmt"
	"slices"
	"time"

	"github.com/dmitrymomot/jobcore/pkg/classify"
)

// OutcomeKind enumerates what can happen to a job.
type OutcomeKind int

const (
	OutcomeStarted OutcomeKind = iota + 1
	OutcomeSucceeded
	OutcomeFailed
	OutcomeCancelled
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeStarted:
		return "started"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outcome is an event applied to a job by Transition.
type Outcome struct {
	Err        *classify.ClassifiedError
	Data       []byte
	RetryDelay time.Duration
	Kind       OutcomeKind
	Abort      bool
}

// Started claims a waiting job for a new attempt.
func Started() Outcome { return Outcome{Kind: OutcomeStarted} }

// Succeeded completes a running job with result data.
func Succeeded(data []byte) Outcome { return Outcome{Kind: OutcomeSucceeded, Data: data} }

// Failed applies a retry decision to a running job.
func Failed(d classify.Decision) Outcome {
	return Outcome{
		Kind:       OutcomeFailed,
		Err:        d.Err,
		RetryDelay: d.Delay,
		Abort:      d.Action == classify.ActionAbort,
	}
}

// Cancelled cancels a waiting job.
func Cancelled() Outcome { return Outcome{Kind: OutcomeCancelled} }

// Transition applies o to j and returns the new record. j is not modified.
// Failures abort when the outcome says so or the attempt budget is spent;
// otherwise the job returns to pending, or to retrying when delayed.
func Transition(j Job, o Outcome, now time.Time) (Job, error) {
	next := j.Clone()
	next.UpdatedAt = now

	switch o.Kind {
	case OutcomeStarted:
		if !j.Status.IsWaiting() {
			return j, invalid(j, o)
		}
		next.Status = StatusRunning
		next.Attempts++
		next.StartedAt = &now

	case OutcomeSucceeded:
		if j.Status != StatusRunning {
			return j, invalid(j, o)
		}
		next.Status = StatusCompleted
		next.CompletedAt = &now
		next.Error = nil
		next.Result = slices.Clone(o.Data)

	case OutcomeFailed:
		if j.Status != StatusRunning {
			return j, invalid(j, o)
		}
		next.Error = o.Err
		if next.Error == nil {
			next.Error = classify.New(classify.CodeUnknown, "job failed")
		}
		switch {
		case o.Abort || !next.Error.Retryable || next.Attempts >= next.MaxAttempts:
			next.Status = StatusFailed
			next.FailedAt = &now
			next.CompletedAt = &now
		case o.RetryDelay > 0:
			next.Status = StatusRetrying
			next.ScheduledAt = now.Add(o.RetryDelay)
		default:
			next.Status = StatusPending
			next.ScheduledAt = now
		}

	case OutcomeCancelled:
		if !j.Status.IsWaiting() {
			return j, invalid(j, o)
		}
		next.Status = StatusCancelled
		next.CompletedAt = &now

	default:
		return j, invalid(j, o)
	}

	return next, nil
}

func invalid(j Job, o Outcome) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, o.Kind, j.Status)
}
