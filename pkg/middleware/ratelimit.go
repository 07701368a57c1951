package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/dmitrymomot/jobcore/pkg/job"
)

// Limiter bounds how many callers hold a slot at once and how often a slot
// may be handed out. Waiters are served in arrival order.
// Release must be called exactly once for every successful Acquire.
type Limiter struct {
	sem   *semaphore.Weighted
	gate  *rate.Limiter
	limit int64
}

// NewLimiter creates a limiter admitting at most maxConcurrent holders and at
// most perInterval acquisitions per interval. A non-positive maxConcurrent
// disables the concurrency bound; a non-positive perInterval or interval
// disables the rate bound.
//
// Example:
//
//	// 5 concurrent calls, 100 per minute
//	l := middleware.NewLimiter(5, 100, time.Minute)
func NewLimiter(maxConcurrent, perInterval int, interval time.Duration) *Limiter {
	l := &Limiter{}
	if maxConcurrent > 0 {
		l.limit = int64(maxConcurrent)
		l.sem = semaphore.NewWeighted(l.limit)
	}
	if perInterval > 0 && interval > 0 {
		l.gate = rate.NewLimiter(rate.Every(interval/time.Duration(perInterval)), perInterval)
	}
	return l
}

// Acquire blocks until a slot is free and the rate allows another start, or
// ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.sem != nil {
		if err := l.sem.Acquire(ctx, 1); err != nil {
			return err
		}
	}
	if l.gate != nil {
		if err := l.gate.Wait(ctx); err != nil {
			l.Release()
			return err
		}
	}
	return nil
}

// Release returns a slot taken by Acquire.
func (l *Limiter) Release() {
	if l.sem != nil {
		l.sem.Release(1)
	}
}

// Do runs fn while holding a slot.
func (l *Limiter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn(ctx)
}

// RateLimit holds a limiter slot for the rest of the chain.
func RateLimit(l *Limiter) Middleware {
	return func(ctx context.Context, jc job.JobContext, next job.Handler) (job.Result, error) {
		if l == nil {
			return next(ctx, jc)
		}
		if err := l.Acquire(ctx); err != nil {
			return job.Result{}, err
		}
		defer l.Release()
		return next(ctx, jc)
	}
}

// Limiters hands out one Limiter per key, created on first use.
type Limiters struct {
	newLimiter func() *Limiter
	byKey      map[string]*Limiter
	mu         sync.Mutex
}

// NewLimiters creates a keyed limiter set. Every key gets its own limiter
// built with the given bounds.
func NewLimiters(maxConcurrent, perInterval int, interval time.Duration) *Limiters {
	return &Limiters{
		newLimiter: func() *Limiter { return NewLimiter(maxConcurrent, perInterval, interval) },
		byKey:      make(map[string]*Limiter),
	}
}

// For returns the limiter for key.
func (ls *Limiters) For(key string) *Limiter {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	l, ok := ls.byKey[key]
	if !ok {
		l = ls.newLimiter()
		ls.byKey[key] = l
	}
	return l
}

// TenantRateLimit applies a separate limiter per tenant so one tenant cannot
// starve the others. Place it after TenantContext or rely on jc.TenantID set
// by the provider.
func TenantRateLimit(ls *Limiters) Middleware {
	return func(ctx context.Context, jc job.JobContext, next job.Handler) (job.Result, error) {
		if ls == nil || jc.TenantID == "" {
			return next(ctx, jc)
		}
		return RateLimit(ls.For(jc.TenantID))(ctx, jc, next)
	}
}
