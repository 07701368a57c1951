package riverq

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/jobcore/pkg/backoff"
	"github.com/dmitrymomot/jobcore/pkg/classify"
	"github.com/dmitrymomot/jobcore/pkg/job"
)

func TestPriorityMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in    int
		river int
		back  int
	}{
		{in: 20, river: 1, back: 10},
		{in: 10, river: 1, back: 10},
		{in: 7, river: 2, back: 5},
		{in: 1, river: 3, back: 1},
		{in: 0, river: 4, back: 0},
		{in: -5, river: 4, back: 0},
	}
	for _, tt := range tests {
		got := riverPriority(tt.in)
		assert.Equal(t, tt.river, got, "riverPriority(%d)", tt.in)
		assert.Equal(t, tt.back, jobPriority(got), "jobPriority(%d)", got)
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()

	cancelledMeta, err := json.Marshal(map[string]any{cancelledKey: time.Now()})
	require.NoError(t, err)

	tests := []struct {
		name string
		row  *rivertype.JobRow
		want job.Status
	}{
		{name: "available", row: &rivertype.JobRow{State: rivertype.JobStateAvailable}, want: job.StatusPending},
		{name: "pending", row: &rivertype.JobRow{State: rivertype.JobStatePending}, want: job.StatusPending},
		{name: "scheduled", row: &rivertype.JobRow{State: rivertype.JobStateScheduled}, want: job.StatusScheduled},
		{name: "retryable", row: &rivertype.JobRow{State: rivertype.JobStateRetryable}, want: job.StatusRetrying},
		{name: "running", row: &rivertype.JobRow{State: rivertype.JobStateRunning}, want: job.StatusRunning},
		{name: "completed", row: &rivertype.JobRow{State: rivertype.JobStateCompleted}, want: job.StatusCompleted},
		{name: "discarded", row: &rivertype.JobRow{State: rivertype.JobStateDiscarded}, want: job.StatusFailed},
		{
			name: "cancelled by caller",
			row:  &rivertype.JobRow{State: rivertype.JobStateCancelled, Metadata: cancelledMeta},
			want: job.StatusCancelled,
		},
		{
			name: "cancelled for permanent error",
			row: &rivertype.JobRow{
				State:  rivertype.JobStateCancelled,
				Errors: []rivertype.AttemptError{{Attempt: 1, Error: "[INSUFFICIENT_BALANCE] insufficient balance"}},
			},
			want: job.StatusFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, status(tt.row))
		})
	}
}

func TestToJob(t *testing.T) {
	t.Parallel()

	args, err := json.Marshal(eventArgs{
		Event:          "order.created",
		TenantID:       "t_1",
		IdempotencyKey: "k1",
		Payload:        json.RawMessage(`{"tenantId":"t_1","orderId":"o1"}`),
	})
	require.NoError(t, err)

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	finalized := created.Add(time.Minute)

	t.Run("completed carries output", func(t *testing.T) {
		t.Parallel()

		row := &rivertype.JobRow{
			ID:          42,
			State:       rivertype.JobStateCompleted,
			EncodedArgs: args,
			Metadata:    []byte(`{"output":{"ok":true}}`),
			Queue:       "default",
			Attempt:     1,
			MaxAttempts: 3,
			Priority:    2,
			CreatedAt:   created,
			FinalizedAt: &finalized,
		}
		j := toJob(row)
		assert.Equal(t, "42", j.ID)
		assert.Equal(t, "order.created", j.Name)
		assert.Equal(t, "t_1", j.TenantID)
		assert.Equal(t, "k1", j.IdempotencyKey)
		assert.Equal(t, job.StatusCompleted, j.Status)
		assert.Equal(t, 5, j.Priority)
		assert.JSONEq(t, `{"ok":true}`, string(j.Result))
		assert.Nil(t, j.Error)
		assert.Equal(t, finalized, j.UpdatedAt)
		require.NotNil(t, j.CompletedAt)
		assert.Nil(t, j.FailedAt)
	})

	t.Run("discarded carries last error", func(t *testing.T) {
		t.Parallel()

		row := &rivertype.JobRow{
			ID:          7,
			State:       rivertype.JobStateDiscarded,
			EncodedArgs: args,
			Attempt:     3,
			MaxAttempts: 3,
			CreatedAt:   created,
			FinalizedAt: &finalized,
			Errors: []rivertype.AttemptError{
				{Attempt: 1, Error: "[CONNECTION_RESET] read: connection reset by peer"},
				{Attempt: 3, Error: "[CONNECTION_REFUSED] dial tcp: connection refused"},
			},
		}
		j := toJob(row)
		assert.Equal(t, job.StatusFailed, j.Status)
		require.NotNil(t, j.Error)
		assert.Equal(t, classify.CodeConnectionRefused, j.Error.Code)
		assert.Equal(t, "dial tcp: connection refused", j.Error.Message)
		assert.True(t, j.Error.Retryable)
		require.NotNil(t, j.FailedAt)
	})
}

func TestDecodeError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		in        string
		code      string
		message   string
		retryable bool
	}{
		{
			name:      "encoded",
			in:        "[INSUFFICIENT_BALANCE] insufficient balance",
			code:      classify.CodeInsufficientBalance,
			message:   "insufficient balance",
			retryable: false,
		},
		{
			name:      "prefixed by river",
			in:        "JobCancelError: [NOT_FOUND] order missing",
			code:      classify.CodeNotFound,
			message:   "order missing",
			retryable: false,
		},
		{
			name:      "multiline message",
			in:        "[TIMEOUT] first\nsecond",
			code:      classify.CodeTimeout,
			message:   "first\nsecond",
			retryable: true,
		},
		{
			name:      "plain string is classified",
			in:        "dial tcp 10.0.0.1:5432: connect: connection refused",
			code:      classify.CodeConnectionRefused,
			retryable: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ce := decodeError(tt.in)
			require.NotNil(t, ce)
			assert.Equal(t, tt.code, ce.Code)
			assert.Equal(t, tt.retryable, ce.Retryable)
			if tt.message != "" {
				assert.Equal(t, tt.message, ce.Message)
			}
		})
	}
}

func TestAttemptError(t *testing.T) {
	t.Parallel()

	ce := classify.New(classify.CodeCardDeclined, "card declined")
	err := &attemptError{ce: ce}

	assert.Equal(t, "[CARD_DECLINED] card declined", err.Error())

	var got *classify.ClassifiedError
	require.True(t, errors.As(err, &got))
	assert.Same(t, ce, got)

	back := decodeError(err.Error())
	assert.Equal(t, ce.Code, back.Code)
	assert.Equal(t, ce.Message, back.Message)
}

func TestRetryPolicy(t *testing.T) {
	t.Parallel()

	p := &retryPolicy{strategy: backoff.Constant(time.Hour)}
	next := p.NextRetry(&rivertype.JobRow{Attempt: 1})
	assert.WithinDuration(t, time.Now().Add(time.Hour), next, time.Second)

	none := &retryPolicy{}
	assert.WithinDuration(t, time.Now(), none.NextRetry(&rivertype.JobRow{Attempt: 1}), time.Second)
}

func TestEventWorkerNextRetry(t *testing.T) {
	t.Parallel()

	w := &eventWorker{}
	rj := &river.Job[eventArgs]{JobRow: &rivertype.JobRow{ID: 5}}

	assert.True(t, w.NextRetry(rj).IsZero(), "no decision defers to the client policy")

	w.delays.Store(int64(5), 30*time.Minute)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), w.NextRetry(rj), time.Second)
	assert.True(t, w.NextRetry(rj).IsZero(), "decision is consumed once")
}
