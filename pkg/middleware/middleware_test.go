package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/jobcore/pkg/classify"
	"github.com/dmitrymomot/jobcore/pkg/dedup"
	"github.com/dmitrymomot/jobcore/pkg/event"
	"github.com/dmitrymomot/jobcore/pkg/job"
	"github.com/dmitrymomot/jobcore/pkg/logger"
	"github.com/dmitrymomot/jobcore/pkg/middleware"
	"github.com/dmitrymomot/jobcore/pkg/tenant"
)

func testContext() job.JobContext {
	return job.JobContext{
		ID:          "j1",
		Name:        event.OrderCreated,
		Payload:     json.RawMessage(`{"tenantId":"t_1","orderId":"o_1"}`),
		Attempt:     1,
		MaxAttempts: 3,
	}
}

func okHandler(context.Context, job.JobContext) (job.Result, error) {
	return job.OK("done"), nil
}

func TestCompose_Order(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		trace []string
	)
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		trace = append(trace, s)
	}
	mw := func(name string) middleware.Middleware {
		return func(ctx context.Context, jc job.JobContext, next job.Handler) (job.Result, error) {
			record(name + ">")
			res, err := next(ctx, jc)
			record("<" + name)
			return res, err
		}
	}

	h := middleware.Compose(mw("a"), nil, mw("b"), mw("c"))(func(context.Context, job.JobContext) (job.Result, error) {
		record("handler")
		return job.OK(nil), nil
	})

	_, err := h(context.Background(), testContext())
	require.NoError(t, err)
	assert.Equal(t, []string{"a>", "b>", "c>", "handler", "<c", "<b", "<a"}, trace)
}

func TestTenantContext(t *testing.T) {
	t.Parallel()

	t.Run("missing tenant never reaches handler", func(t *testing.T) {
		t.Parallel()

		called := false
		h := middleware.Wrap(func(context.Context, job.JobContext) (job.Result, error) {
			called = true
			return job.OK(nil), nil
		}, middleware.TenantContext(nil, nil))

		jc := testContext()
		jc.Payload = json.RawMessage(`{"orderId":"o_1"}`)
		_, err := h(context.Background(), jc)
		require.ErrorIs(t, err, event.ErrMissingTenant)
		assert.False(t, called)
		assert.False(t, classify.IsRetryable(err))
	})

	t.Run("unscoped sets tenant in context", func(t *testing.T) {
		t.Parallel()

		var got string
		h := middleware.Wrap(func(ctx context.Context, jc job.JobContext) (job.Result, error) {
			got, _ = tenant.FromContext(ctx)
			assert.Equal(t, "t_1", jc.TenantID)
			return job.OK(nil), nil
		}, middleware.TenantContext(nil, nil))

		_, err := h(context.Background(), testContext())
		require.NoError(t, err)
		assert.Equal(t, "t_1", got)
	})

	t.Run("scoped execution", func(t *testing.T) {
		t.Parallel()

		var scopedFor string
		scoper := tenant.ScoperFunc(func(ctx context.Context, id string, fn func(context.Context) error) error {
			scopedFor = id
			return fn(ctx)
		})
		h := middleware.Wrap(okHandler, middleware.TenantContext(scoper, nil))

		res, err := h(context.Background(), testContext())
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "t_1", scopedFor)
	})

	t.Run("scope unavailable falls back", func(t *testing.T) {
		t.Parallel()

		scoper := tenant.ScoperFunc(func(context.Context, string, func(context.Context) error) error {
			return tenant.ErrScopeUnavailable
		})
		h := middleware.Wrap(okHandler, middleware.TenantContext(scoper, nil))

		res, err := h(context.Background(), testContext())
		require.NoError(t, err)
		assert.True(t, res.Success)
	})

	t.Run("handler error propagates through scope", func(t *testing.T) {
		t.Parallel()

		want := errors.New("ECONNREFUSED")
		scoper := tenant.ScoperFunc(func(ctx context.Context, _ string, fn func(context.Context) error) error {
			return fn(ctx)
		})
		h := middleware.Wrap(func(context.Context, job.JobContext) (job.Result, error) {
			return job.Result{}, want
		}, middleware.TenantContext(scoper, nil))

		_, err := h(context.Background(), testContext())
		require.ErrorIs(t, err, want)
	})

	t.Run("failed result is returned as is", func(t *testing.T) {
		t.Parallel()

		scoper := tenant.ScoperFunc(func(ctx context.Context, _ string, fn func(context.Context) error) error {
			return fn(ctx)
		})
		h := middleware.Wrap(func(context.Context, job.JobContext) (job.Result, error) {
			return job.Fail("declined"), nil
		}, middleware.TenantContext(scoper, nil))

		res, err := h(context.Background(), testContext())
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "declined", res.Error)
	})
}

func TestLogging(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.Config{Output: &buf, Level: "debug"}, logger.JobIDExtractor())

	h := middleware.Wrap(okHandler, middleware.Logging(log))
	_, err := h(context.Background(), testContext())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"msg":"job started"`)
	assert.Contains(t, buf.String(), `"msg":"job completed"`)
	assert.Contains(t, buf.String(), `"job_id":"j1"`)

	buf.Reset()
	failing := middleware.Wrap(func(context.Context, job.JobContext) (job.Result, error) {
		return job.Result{}, errors.New("insufficient balance")
	}, middleware.Logging(log))
	_, err = failing(context.Background(), testContext())
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"msg":"job failed"`)
	assert.Contains(t, buf.String(), `"code":"INSUFFICIENT_BALANCE"`)
}

func TestTiming(t *testing.T) {
	t.Parallel()

	var (
		observed time.Duration
		gotErr   error
	)
	h := middleware.Wrap(func(context.Context, job.JobContext) (job.Result, error) {
		time.Sleep(10 * time.Millisecond)
		return job.Fail("nope"), nil
	}, middleware.Timing(func(_ job.JobContext, d time.Duration, err error) {
		observed = d
		gotErr = err
	}))

	_, err := h(context.Background(), testContext())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, observed, 10*time.Millisecond)
	require.EqualError(t, gotErr, "nope")
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	h := middleware.Wrap(func(context.Context, job.JobContext) (job.Result, error) {
		return job.Result{}, errors.New("ECONNREFUSED")
	}, middleware.ErrorClassification())

	_, err := h(context.Background(), testContext())
	var ce *classify.ClassifiedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, classify.CodeConnectionRefused, ce.Code)
	assert.True(t, ce.Retryable)

	h = middleware.Wrap(okHandler, middleware.ErrorClassification())
	_, err = h(context.Background(), testContext())
	require.NoError(t, err)
}

func TestRecover(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := middleware.Wrap(func(context.Context, job.JobContext) (job.Result, error) {
		panic("boom")
	}, middleware.Recover(slog.New(slog.NewTextHandler(&buf, nil))))

	_, err := h(context.Background(), testContext())
	var pe *job.PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "boom", pe.Value)
	assert.Contains(t, buf.String(), "job handler panicked")
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	t.Run("slow handler times out", func(t *testing.T) {
		t.Parallel()

		cancelled := make(chan struct{})
		h := middleware.Wrap(func(ctx context.Context, _ job.JobContext) (job.Result, error) {
			select {
			case <-ctx.Done():
				close(cancelled)
				return job.Result{}, ctx.Err()
			case <-time.After(500 * time.Millisecond):
				return job.OK(nil), nil
			}
		}, middleware.Timeout(50*time.Millisecond))

		start := time.Now()
		_, err := h(context.Background(), testContext())
		elapsed := time.Since(start)

		require.Error(t, err)
		assert.True(t, middleware.IsTimeoutError(err))
		assert.Contains(t, err.Error(), "timed out")
		assert.Less(t, elapsed, 300*time.Millisecond)
		assert.Equal(t, classify.CodeTimeout, classify.Classify(err).Code)

		select {
		case <-cancelled:
		case <-time.After(time.Second):
			t.Fatal("handler context was not cancelled")
		}
	})

	t.Run("fast handler passes", func(t *testing.T) {
		t.Parallel()

		h := middleware.Wrap(okHandler, middleware.Timeout(time.Second))
		res, err := h(context.Background(), testContext())
		require.NoError(t, err)
		assert.Equal(t, "done", res.Data)
	})

	t.Run("panic inside timeout is returned", func(t *testing.T) {
		t.Parallel()

		h := middleware.Wrap(func(context.Context, job.JobContext) (job.Result, error) {
			panic("late")
		}, middleware.Timeout(time.Second))
		_, err := h(context.Background(), testContext())
		var pe *job.PanicError
		require.ErrorAs(t, err, &pe)
	})
}

func TestIdempotency(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := dedup.NewMemory()
	t.Cleanup(func() { _ = store.Close() })

	var calls atomic.Int32
	fail := atomic.Bool{}
	fail.Store(true)

	h := middleware.Wrap(func(context.Context, job.JobContext) (job.Result, error) {
		calls.Add(1)
		if fail.Load() {
			return job.Result{}, errors.New("ECONNRESET")
		}
		return job.OK("paid"), nil
	}, middleware.Idempotency(store, middleware.ByJobID, time.Hour, nil))

	_, err := h(ctx, testContext())
	require.Error(t, err)
	seen, err := store.Has(ctx, middleware.ByJobID(testContext()))
	require.NoError(t, err)
	assert.False(t, seen, "failed attempt must not mark the key")

	fail.Store(false)
	res, err := h(ctx, testContext())
	require.NoError(t, err)
	assert.Equal(t, "paid", res.Data)

	res, err = h(ctx, testContext())
	require.NoError(t, err)
	assert.Equal(t, middleware.Skipped{Key: "order.created:j1", Skipped: true}, res.Data)
	assert.Equal(t, int32(2), calls.Load())
}

func TestByPayloadField(t *testing.T) {
	t.Parallel()

	jc := testContext()
	jc.Payload = json.RawMessage(`{"tenantId":"t_1","idempotencyKey":"t_1:payout:p_1"}`)
	assert.Equal(t, "order.created:t_1:payout:p_1", middleware.ByPayloadField("idempotencyKey")(jc))
	assert.Empty(t, middleware.ByPayloadField("missing")(jc))
}
