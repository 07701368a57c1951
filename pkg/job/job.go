package job

import (
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/dmitrymomot/jobcore/pkg/classify"
	"github.com/dmitrymomot/jobcore/pkg/event"
)

// Job is a provider's record of one unit of work.
type Job struct {
	ScheduledAt    time.Time                 `json:"scheduled_at"`
	CreatedAt      time.Time                 `json:"created_at"`
	UpdatedAt      time.Time                 `json:"updated_at"`
	StartedAt      *time.Time                `json:"started_at,omitempty"`
	CompletedAt    *time.Time                `json:"completed_at,omitempty"`
	FailedAt       *time.Time                `json:"failed_at,omitempty"`
	Error          *classify.ClassifiedError `json:"error,omitempty"`
	ID             string                    `json:"id"`
	Name           string                    `json:"name"`
	Queue          string                    `json:"queue"`
	TenantID       string                    `json:"tenant_id"`
	IdempotencyKey string                    `json:"idempotency_key,omitempty"`
	Status         Status                    `json:"status"`
	Payload        json.RawMessage           `json:"payload"`
	Result         json.RawMessage           `json:"result,omitempty"`
	Tags           []string                  `json:"tags,omitempty"`
	Attempts       int                       `json:"attempts"`
	MaxAttempts    int                       `json:"max_attempts"`
	Priority       int                       `json:"priority"`
}

// Clone returns a deep copy of j.
func (j Job) Clone() Job {
	out := j
	out.Payload = slices.Clone(j.Payload)
	out.Result = slices.Clone(j.Result)
	out.Tags = slices.Clone(j.Tags)
	out.StartedAt = cloneTime(j.StartedAt)
	out.CompletedAt = cloneTime(j.CompletedAt)
	out.FailedAt = cloneTime(j.FailedAt)
	if j.Error != nil {
		e := *j.Error
		out.Error = &e
	}
	return out
}

// Context returns the read-only view handed to handlers.
func (j Job) Context() JobContext {
	jc := JobContext{
		ID:          j.ID,
		Name:        j.Name,
		TenantID:    j.TenantID,
		Queue:       j.Queue,
		Payload:     slices.Clone(j.Payload),
		Attempt:     j.Attempts,
		MaxAttempts: j.MaxAttempts,
		QueuedAt:    j.CreatedAt,
	}
	if j.StartedAt != nil {
		jc.StartedAt = *j.StartedAt
	}
	return jc
}

// RunStatus returns the externally visible status of j.
func (j Job) RunStatus() RunStatus {
	rs := RunStatus{
		ID:          j.ID,
		Status:      j.Status,
		Attempts:    j.Attempts,
		MaxAttempts: j.MaxAttempts,
		StartedAt:   cloneTime(j.StartedAt),
		CompletedAt: cloneTime(j.CompletedAt),
	}
	if j.Error != nil {
		e := *j.Error
		rs.Error = &e
	}
	return rs
}

// WaitResult returns the outcome of a job in a terminal state.
func (j Job) WaitResult() WaitResult {
	res := WaitResult{
		ID:      j.ID,
		Status:  j.Status,
		Success: j.Status == StatusCompleted,
		Data:    slices.Clone(j.Result),
	}
	switch {
	case j.Status == StatusCancelled:
		res.Error = classify.Newf(classify.CodeCancelled, "job %s was cancelled", j.ID)
	case !res.Success && j.Error != nil:
		e := *j.Error
		res.Error = &e
	}
	return res
}

// JobContext is the read-only view of a job passed to handlers.
type JobContext struct {
	QueuedAt    time.Time       `json:"queued_at"`
	StartedAt   time.Time       `json:"started_at"`
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	TenantID    string          `json:"tenant_id"`
	Queue       string          `json:"queue"`
	Payload     json.RawMessage `json:"payload"`
	Attempt     int             `json:"attempt"`
	MaxAttempts int             `json:"max_attempts"`
}

// IsLastAttempt reports whether a failure of this attempt is final.
func (jc JobContext) IsLastAttempt() bool {
	return jc.Attempt >= jc.MaxAttempts
}

// Decode unmarshals the job payload into P.
func Decode[P any](jc JobContext) (P, error) {
	var p P
	if len(jc.Payload) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(jc.Payload, &p); err != nil {
		return p, errors.Join(ErrInvalidPayload, err)
	}
	return p, nil
}

// EncodePayload marshals a payload for storage.
func EncodePayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return slices.Clone(p), nil
	case []byte:
		if !json.Valid(p) {
			return nil, ErrInvalidPayload
		}
		return slices.Clone(p), nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Join(ErrInvalidPayload, err)
	}
	return raw, nil
}

// EncodeTenantPayload validates the tenant of payload and marshals it. The
// tenant is read again from the encoded JSON, which is what handlers see, so
// a TenantScoped value whose JSON lacks tenantId is rejected.
func EncodeTenantPayload(eventName string, payload any) (string, json.RawMessage, error) {
	if _, err := event.ValidateTenantID(eventName, payload); err != nil {
		return "", nil, err
	}
	raw, err := EncodePayload(payload)
	if err != nil {
		return "", nil, err
	}
	tenantID, err := event.ValidateTenantID(eventName, raw)
	if err != nil {
		return "", nil, err
	}
	return tenantID, raw, nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
