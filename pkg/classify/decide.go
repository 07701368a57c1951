package classify

import (
	"time"

	"github.com/dmitrymomot/jobcore/pkg/backoff"
)

// Action is the outcome of a retry decision.
type Action int

const (
	// ActionRetry requeues the job for immediate re-execution.
	ActionRetry Action = iota
	// ActionDelay requeues the job after Decision.Delay.
	ActionDelay
	// ActionAbort fails the job permanently.
	ActionAbort
)

// String returns the lowercase action name.
func (a Action) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionDelay:
		return "delay"
	case ActionAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// Decision tells a processor what to do with a failed attempt.
type Decision struct {
	Err    *ClassifiedError
	Delay  time.Duration
	Action Action
}

// Decide classifies err and decides whether the job gets another attempt.
// attempt is the number of attempts already made, including the failed one.
// Permanent errors abort regardless of the remaining budget. A RetryAfter hint
// on the error takes precedence over the strategy. A nil strategy retries
// immediately.
func Decide(err error, attempt, maxAttempts int, strategy backoff.Strategy) Decision {
	ce := Classify(err)
	if ce == nil {
		ce = New(CodeUnknown, "job failed without an error")
	}

	if !ce.Retryable || attempt >= maxAttempts {
		return Decision{Action: ActionAbort, Err: ce}
	}

	delay := ce.RetryAfter
	if delay <= 0 && strategy != nil {
		delay = strategy.Delay(attempt)
	}
	if delay > 0 {
		return Decision{Action: ActionDelay, Delay: delay, Err: ce}
	}
	return Decision{Action: ActionRetry, Err: ce}
}
