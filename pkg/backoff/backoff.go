package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before a retry attempt.
type Strategy interface {
	// Delay returns how long to wait before retry attempt n (1-indexed).
	Delay(attempt int) time.Duration
}

// Func adapts a plain function to the Strategy interface.
type Func func(attempt int) time.Duration

// Delay calls f(attempt).
func (f Func) Delay(attempt int) time.Duration { return f(attempt) }

// None retries immediately.
func None() Strategy {
	return Func(func(int) time.Duration { return 0 })
}

// Constant waits the same interval before every retry.
func Constant(interval time.Duration) Strategy {
	return Func(func(int) time.Duration { return interval })
}

// Linear waits initial*attempt, capped at maxDelay when maxDelay > 0.
func Linear(initial, maxDelay time.Duration) Strategy {
	return Func(func(attempt int) time.Duration {
		return capped(initial*time.Duration(max(attempt, 1)), maxDelay)
	})
}

// Exponential doubles the delay on each attempt: initial*2^(attempt-1),
// capped at maxDelay when maxDelay > 0.
func Exponential(initial, maxDelay time.Duration) Strategy {
	return Func(func(attempt int) time.Duration {
		return capped(exponent(initial, attempt), maxDelay)
	})
}

// ExponentialWithJitter picks a random delay in [0, Exponential(attempt)].
// Spreads retries of jobs that failed together.
func ExponentialWithJitter(initial, maxDelay time.Duration) Strategy {
	return Func(func(attempt int) time.Duration {
		base := capped(exponent(initial, attempt), maxDelay)
		if base <= 0 {
			return 0
		}
		return time.Duration(rand.Int64N(int64(base) + 1)) //nolint:gosec // jitter does not need crypto rand
	})
}

// Default is exponential backoff from 1s capped at 1m.
func Default() Strategy {
	return Exponential(time.Second, time.Minute)
}

func exponent(initial time.Duration, attempt int) time.Duration {
	attempt = max(attempt, 1)
	d := float64(initial) * math.Pow(2, float64(attempt-1))
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

func capped(d, maxDelay time.Duration) time.Duration {
	if maxDelay > 0 && d > maxDelay {
		return maxDelay
	}
	return d
}
