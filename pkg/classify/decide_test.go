package classify_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/jobcore/pkg/backoff"
	"github.com/dmitrymomot/jobcore/pkg/classify"
)

func TestDecide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		attempt  int
		max      int
		strategy backoff.Strategy
		action   classify.Action
		delay    time.Duration
	}{
		{"permanent aborts on first attempt", errors.New("insufficient balance"), 1, 5, nil, classify.ActionAbort, 0},
		{"budget exhausted", errors.New("ECONNREFUSED"), 3, 3, nil, classify.ActionAbort, 0},
		{"retry without strategy", errors.New("ECONNREFUSED"), 1, 3, nil, classify.ActionRetry, 0},
		{"retry with none", errors.New("timeout"), 1, 3, backoff.None(), classify.ActionRetry, 0},
		{"delay from strategy", errors.New("timeout"), 2, 5, backoff.Exponential(time.Second, time.Minute), classify.ActionDelay, 2 * time.Second},
		{"retry after wins", httpErr{status: 429, retryAfter: 7 * time.Second}, 1, 5, backoff.Constant(time.Second), classify.ActionDelay, 7 * time.Second},
		{"nil error retried", nil, 1, 3, nil, classify.ActionRetry, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := classify.Decide(tt.err, tt.attempt, tt.max, tt.strategy)
			assert.Equal(t, tt.action, d.Action, d.Action.String())
			assert.Equal(t, tt.delay, d.Delay)
			assert.NotNil(t, d.Err)
		})
	}
}

func TestIdempotencyKey(t *testing.T) {
	t.Parallel()

	key, err := classify.IdempotencyKey("t_1", "payout", "po_9")
	assert.NoError(t, err)
	assert.Equal(t, "t_1:payout:po_9", key)

	key, err = classify.IdempotencyKey("t_1", "commission", "c_1", "2024-05")
	assert.NoError(t, err)
	assert.Equal(t, "t_1:commission:c_1:2024-05", key)

	_, err = classify.IdempotencyKey("t_1", " ", "c_1")
	assert.ErrorIs(t, err, classify.ErrInvalidKeyPart)
}

func TestIdempotencyKey_SeparatorInPart(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []string
	}{
		{"entity id with colon vs extra part", []string{"t1", "payout", "po:1"}, []string{"t1", "payout", "po", "1"}},
		{"tenant with colon vs operation with colon", []string{"acme:payout", "x", "y"}, []string{"acme", "payout:x", "y"}},
		{"escaped text vs colon", []string{"t1", "payout", "po%3A1"}, []string{"t1", "payout", "po:1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ka, err := classify.IdempotencyKey(tt.a[0], tt.a[1], tt.a[2], tt.a[3:]...)
			require.NoError(t, err)
			kb, err := classify.IdempotencyKey(tt.b[0], tt.b[1], tt.b[2], tt.b[3:]...)
			require.NoError(t, err)
			assert.NotEqual(t, ka, kb)
		})
	}

	key, err := classify.IdempotencyKey("t1", "payout", "po:1")
	require.NoError(t, err)
	assert.Equal(t, "t1:payout:po%3A1", key)
}
