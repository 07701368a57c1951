package middleware

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/dmitrymomot/jobcore/pkg/classify"
	"github.com/dmitrymomot/jobcore/pkg/job"
)

// DefaultTimeout bounds an attempt when Timeout is given a non-positive duration.
const DefaultTimeout = 5 * time.Minute

// TimeoutError is returned when an attempt exceeds its time budget.
type TimeoutError struct {
	JobID    string
	Duration time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("job %s timed out after %s", e.JobID, e.Duration)
}

// Code reports the classification code for timeouts.
func (e *TimeoutError) Code() string {
	return classify.CodeTimeout
}

// IsTimeoutError reports whether err is or wraps a *TimeoutError.
func IsTimeoutError(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// Timeout races the rest of the chain against d. When d elapses first the
// handler context is cancelled and a *TimeoutError is returned at once. The
// handler goroutine keeps running until it observes ctx.Done.
func Timeout(d time.Duration) Middleware {
	if d <= 0 {
		d = DefaultTimeout
	}

	type outcome struct {
		err error
		res job.Result
	}

	return func(ctx context.Context, jc job.JobContext, next job.Handler) (job.Result, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		done := make(chan outcome, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- outcome{err: &job.PanicError{Value: r, Stack: debug.Stack()}}
				}
			}()
			res, err := next(ctx, jc)
			done <- outcome{res: res, err: err}
		}()

		select {
		case o := <-done:
			return o.res, o.err
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return job.Result{}, &TimeoutError{JobID: jc.ID, Duration: d}
			}
			return job.Result{}, ctx.Err()
		}
	}
}
