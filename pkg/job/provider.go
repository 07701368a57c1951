package job

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmitrymomot/jobcore/pkg/classify"
)

// DefaultWaitTimeout bounds TriggerAndWait when the caller passes no timeout.
const DefaultWaitTimeout = 30 * time.Second

// Provider is the backend-agnostic job API.
type Provider interface {
	// Name identifies the backend ("local", "river", "redis").
	Name() string

	// Send validates the tenant and queues one job.
	Send(ctx context.Context, event string, payload any, opts ...SendOption) (SendResult, error)

	// SendBatch queues every event independently. A failed item never
	// prevents the others from being queued.
	SendBatch(ctx context.Context, events []BatchEvent) BatchSendResult

	// TriggerAndWait queues a job and blocks until it reaches a terminal state
	// or timeout elapses. A timeout yields Success=false with a "timed out"
	// error and leaves the job running. A timeout <= 0 uses DefaultWaitTimeout.
	// The returned error reports only failures to queue the job.
	TriggerAndWait(ctx context.Context, event string, payload any, timeout time.Duration, opts ...SendOption) (WaitResult, error)

	// Cancel stops a job that has not started. It returns false for running
	// or finished jobs.
	Cancel(ctx context.Context, runID string) (bool, error)

	// GetRunStatus returns ErrJobNotFound for unknown IDs.
	GetRunStatus(ctx context.Context, runID string) (RunStatus, error)

	// RegisterHandler binds a handler to an event name.
	RegisterHandler(event string, h Handler)

	// IsConfigured reports whether the backend has what it needs to run.
	IsConfigured() bool

	// HealthCheck probes the backend. It never returns an error; failures
	// are reported in the status.
	HealthCheck(ctx context.Context) HealthStatus
}

// Runner is implemented by providers that process jobs in this process.
type Runner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// SendResult reports the outcome of Send.
type SendResult struct {
	ID        string `json:"id"`
	Accepted  bool   `json:"accepted"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// BatchEvent is one item of SendBatch.
type BatchEvent struct {
	Payload any
	Name    string
	Options []SendOption
}

// BatchItemResult reports the outcome of one batch item.
type BatchItemResult struct {
	Err       error  `json:"-"`
	ID        string `json:"id,omitempty"`
	Error     string `json:"error,omitempty"`
	Index     int    `json:"index"`
	Accepted  bool   `json:"accepted"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// BatchSendResult aggregates SendBatch outcomes in input order.
type BatchSendResult struct {
	Results []BatchItemResult `json:"results"`
	Queued  int               `json:"queued"`
	Failed  int               `json:"failed"`
}

// WaitResult is the outcome observed by TriggerAndWait.
type WaitResult struct {
	Error   *classify.ClassifiedError `json:"error,omitempty"`
	ID      string                    `json:"id"`
	Status  Status                    `json:"status,omitempty"`
	Data    json.RawMessage           `json:"data,omitempty"`
	Success bool                      `json:"success"`
}

// RunStatus is the externally visible state of a job.
type RunStatus struct {
	StartedAt   *time.Time                `json:"started_at,omitempty"`
	CompletedAt *time.Time                `json:"completed_at,omitempty"`
	Error       *classify.ClassifiedError `json:"error,omitempty"`
	ID          string                    `json:"id"`
	Status      Status                    `json:"status"`
	Attempts    int                       `json:"attempts"`
	MaxAttempts int                       `json:"max_attempts"`
}

// HealthStatus is the result of a provider health probe.
type HealthStatus struct {
	Error   string        `json:"error,omitempty"`
	Latency time.Duration `json:"latency"`
	Healthy bool          `json:"healthy"`
}

// SendFunc matches Provider.Send.
type SendFunc func(ctx context.Context, event string, payload any, opts ...SendOption) (SendResult, error)

// SendEach sends every batch item with send and collects per-index results.
// Providers use it to implement SendBatch.
func SendEach(ctx context.Context, events []BatchEvent, send SendFunc) BatchSendResult {
	out := BatchSendResult{Results: make([]BatchItemResult, len(events))}
	for i, ev := range events {
		item := BatchItemResult{Index: i}
		res, err := send(ctx, ev.Name, ev.Payload, ev.Options...)
		if err != nil {
			item.Err = err
			item.Error = err.Error()
			out.Failed++
		} else {
			item.ID = res.ID
			item.Accepted = res.Accepted
			item.Duplicate = res.Duplicate
			out.Queued++
		}
		out.Results[i] = item
	}
	return out
}

// TimedOut is the WaitResult reported when a wait deadline passes first.
func TimedOut(id string, timeout time.Duration) WaitResult {
	return WaitResult{
		ID:    id,
		Error: classify.Newf(classify.CodeTimeout, "job %s timed out after %s", id, timeout),
	}
}

// WaitTimeout normalizes a TriggerAndWait timeout.
func WaitTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return DefaultWaitTimeout
	}
	return timeout
}

// Healthcheck adapts a provider probe to a func(ctx) error check.
// Compatible with health.CheckFunc.
func Healthcheck(p Provider) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if p == nil || !p.IsConfigured() {
			return ErrHealthcheckFailed
		}
		st := p.HealthCheck(ctx)
		if !st.Healthy {
			return healthError(st.Error)
		}
		return nil
	}
}

type healthError string

func (e healthError) Error() string { return ErrHealthcheckFailed.Error() + ": " + string(e) }

func (e healthError) Unwrap() error { return ErrHealthcheckFailed }
