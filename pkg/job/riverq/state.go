package riverq

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/riverqueue/river/rivertype"

	"github.com/dmitrymomot/jobcore/pkg/backoff"
	"github.com/dmitrymomot/jobcore/pkg/classify"
	"github.com/dmitrymomot/jobcore/pkg/job"
)

// cancelledKey marks rows cancelled through Provider.Cancel. Rows cancelled
// by the worker for a permanent error do not carry it and report as failed.
const cancelledKey = "jobcore_cancelled_at"

// River priorities run from 1 (first) to 4 (last); job priorities are
// unbounded with higher values first.
func riverPriority(p int) int {
	switch {
	case p >= 10:
		return 1
	case p >= 5:
		return 2
	case p > 0:
		return 3
	default:
		return 4
	}
}

func jobPriority(p int) int {
	switch p {
	case 1:
		return 10
	case 2:
		return 5
	case 3:
		return 1
	default:
		return 0
	}
}

type rowMetadata struct {
	Output    json.RawMessage `json:"output,omitempty"`
	Cancelled *time.Time      `json:"jobcore_cancelled_at,omitempty"`
}

func metadata(row *rivertype.JobRow) rowMetadata {
	var m rowMetadata
	if len(row.Metadata) > 0 {
		_ = json.Unmarshal(row.Metadata, &m)
	}
	return m
}

func status(row *rivertype.JobRow) job.Status {
	switch row.State {
	case rivertype.JobStateAvailable, rivertype.JobStatePending:
		return job.StatusPending
	case rivertype.JobStateScheduled:
		return job.StatusScheduled
	case rivertype.JobStateRetryable:
		return job.StatusRetrying
	case rivertype.JobStateRunning:
		return job.StatusRunning
	case rivertype.JobStateCompleted:
		return job.StatusCompleted
	case rivertype.JobStateDiscarded:
		return job.StatusFailed
	case rivertype.JobStateCancelled:
		if metadata(row).Cancelled == nil && len(row.Errors) > 0 {
			return job.StatusFailed
		}
		return job.StatusCancelled
	default:
		return job.StatusPending
	}
}

func toJob(row *rivertype.JobRow) job.Job {
	var args eventArgs
	_ = json.Unmarshal(row.EncodedArgs, &args)

	j := job.Job{
		ID:             strconv.FormatInt(row.ID, 10),
		Name:           args.Event,
		Queue:          row.Queue,
		TenantID:       args.TenantID,
		IdempotencyKey: args.IdempotencyKey,
		Status:         status(row),
		Payload:        args.Payload,
		Tags:           row.Tags,
		Attempts:       row.Attempt,
		MaxAttempts:    row.MaxAttempts,
		Priority:       jobPriority(row.Priority),
		ScheduledAt:    row.ScheduledAt,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.CreatedAt,
		StartedAt:      row.AttemptedAt,
		Error:          lastError(row),
	}
	if row.AttemptedAt != nil {
		j.UpdatedAt = *row.AttemptedAt
	}
	if row.FinalizedAt != nil {
		j.UpdatedAt = *row.FinalizedAt
		j.CompletedAt = row.FinalizedAt
		if j.Status == job.StatusFailed {
			j.FailedAt = row.FinalizedAt
		}
	}
	if j.Status == job.StatusCompleted {
		j.Result = metadata(row).Output
		j.Error = nil
	}
	return j
}

func lastError(row *rivertype.JobRow) *classify.ClassifiedError {
	if len(row.Errors) == 0 {
		return nil
	}
	return decodeError(row.Errors[len(row.Errors)-1].Error)
}

// attemptError carries the classification of a failed attempt through
// River, which persists only the error string. River may prefix the string,
// for example for cancelled jobs, so decoding looks for the first code.
type attemptError struct {
	ce *classify.ClassifiedError
}

func (e *attemptError) Error() string {
	return fmt.Sprintf("[%s] %s", e.ce.Code, e.ce.Message)
}

func (e *attemptError) Unwrap() error { return e.ce }

var attemptErrorRe = regexp.MustCompile(`\[([A-Z][A-Z0-9_]*)\] (?s:(.*))$`)

func decodeError(s string) *classify.ClassifiedError {
	if m := attemptErrorRe.FindStringSubmatch(s); m != nil {
		return classify.New(m[1], m[2])
	}
	return classify.Classify(errors.New(s))
}

// retryPolicy schedules retries with a backoff strategy. It is River's
// fallback when the worker has no decision of its own for a job.
type retryPolicy struct {
	strategy backoff.Strategy
}

func (p *retryPolicy) NextRetry(row *rivertype.JobRow) time.Time {
	var d time.Duration
	if p.strategy != nil {
		d = p.strategy.Delay(row.Attempt)
	}
	return time.Now().Add(d)
}
